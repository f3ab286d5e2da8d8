// Package markers keeps a marker layer in step with the fountain set.
package markers

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/rendis/spottet/internal/model"
)

const eventBuffer = 64

// Variant selects the marker icon.
type Variant int

const (
	VariantWorking Variant = iota // blue drop
	VariantBroken                 // red drop
)

func (v Variant) String() string {
	if v == VariantBroken {
		return "broken"
	}
	return "working"
}

// Emphasis selects the marker entry animation.
type Emphasis int

const (
	EmphasisDrop Emphasis = iota
	EmphasisBounce
)

type Style struct {
	Variant  Variant
	Emphasis Emphasis
}

// StyleFor maps a fountain's flags to its marker style.
func StyleFor(f model.Fountain) Style {
	s := Style{Variant: VariantWorking, Emphasis: EmphasisDrop}
	if !f.IsWorking {
		s.Variant = VariantBroken
	}
	if f.IsFavorite {
		s.Emphasis = EmphasisBounce
	}
	return s
}

// Marker is the view-model a layer draws for one fountain.
type Marker struct {
	FountainID string
	Position   model.Coordinate
	Title      string
	Style      Style
}

func markerFor(f model.Fountain) Marker {
	return Marker{
		FountainID: f.ID,
		Position:   f.Location,
		Title:      f.Name,
		Style:      StyleFor(f),
	}
}

// MarkerHandle is a displayed marker: the layer's handle plus the state last
// pushed to it.
type MarkerHandle struct {
	ID     string
	Marker Marker
}

// EventSink receives user interaction from a layer.
type EventSink interface {
	MarkerClicked(handleID string)
	FavoriteRequested(fountainID string)
}

// Layer is the map-rendering side. Implementations must not call back into
// the sink from inside Create, Update or Remove.
type Layer interface {
	Attach(sink EventSink)
	Create(m Marker) (handleID string, err error)
	Update(handleID string, m Marker) error
	Remove(handleID string) error
}

type EventKind int

const (
	EventMarkerClicked EventKind = iota
	EventFavoriteRequested
)

func (k EventKind) String() string {
	switch k {
	case EventMarkerClicked:
		return "marker_clicked"
	case EventFavoriteRequested:
		return "favorite_requested"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

type Event struct {
	Kind       EventKind
	FountainID string
}

// Ops counts the layer calls made by one reconciliation.
type Ops struct {
	Created int
	Updated int
	Removed int
}

func (o Ops) Total() int {
	return o.Created + o.Updated + o.Removed
}

// Controller reconciles displayed markers against the desired fountains and
// turns layer interaction into Events.
type Controller struct {
	layer  Layer
	logger *log.Logger
	events chan Event

	mu       sync.RWMutex
	byHandle map[string]string // handle ID -> fountain ID
}

func NewController(layer Layer, logger *log.Logger) *Controller {
	c := &Controller{
		layer:    layer,
		logger:   logger,
		events:   make(chan Event, eventBuffer),
		byHandle: make(map[string]string),
	}
	layer.Attach(c)
	return c
}

// Events delivers marker clicks and favorite requests, resolved to fountain IDs.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Reconcile makes the layer show exactly one marker per desired fountain.
//
// Markers for fountains no longer desired, and extra markers for the same
// fountain, are removed. Missing ones are created. A marker is updated only
// when its style, position or title differs from what was last pushed, so an
// unchanged desired set costs zero layer calls. The returned handles follow
// desired order. Layer failures are collected into the returned error and
// do not stop the pass; a marker whose removal failed is kept so the next
// pass retries it.
func (c *Controller) Reconcile(displayed []MarkerHandle, desired []model.Fountain) ([]MarkerHandle, Ops, error) {
	var ops Ops
	var errs []error

	wanted := make(map[string]struct{}, len(desired))
	for _, f := range desired {
		wanted[f.ID] = struct{}{}
	}

	current := make(map[string]MarkerHandle, len(displayed))
	var stuck []MarkerHandle
	for _, h := range displayed {
		id := h.Marker.FountainID
		_, want := wanted[id]
		_, seen := current[id]
		if want && !seen {
			current[id] = h
			continue
		}
		if err := c.layer.Remove(h.ID); err != nil {
			errs = append(errs, fmt.Errorf("removing marker %s (fountain %s): %w", h.ID, id, err))
			stuck = append(stuck, h)
			continue
		}
		ops.Removed++
	}

	out := make([]MarkerHandle, 0, len(desired)+len(stuck))
	placed := make(map[string]struct{}, len(desired))
	for _, f := range desired {
		if _, dup := placed[f.ID]; dup {
			continue
		}
		placed[f.ID] = struct{}{}

		m := markerFor(f)
		h, ok := current[f.ID]
		if !ok {
			handleID, err := c.layer.Create(m)
			if err != nil {
				errs = append(errs, fmt.Errorf("creating marker for fountain %s: %w", f.ID, err))
				continue
			}
			out = append(out, MarkerHandle{ID: handleID, Marker: m})
			ops.Created++
			continue
		}
		if h.Marker != m {
			if err := c.layer.Update(h.ID, m); err != nil {
				errs = append(errs, fmt.Errorf("updating marker %s (fountain %s): %w", h.ID, f.ID, err))
				out = append(out, h)
				continue
			}
			h.Marker = m
			ops.Updated++
		}
		out = append(out, h)
	}
	out = append(out, stuck...)

	byHandle := make(map[string]string, len(out))
	for _, h := range out {
		byHandle[h.ID] = h.Marker.FountainID
	}
	c.mu.Lock()
	c.byHandle = byHandle
	c.mu.Unlock()

	if ops.Total() > 0 || len(errs) > 0 {
		c.logger.Printf("MARKERS created=%d updated=%d removed=%d displayed=%d errors=%d",
			ops.Created, ops.Updated, ops.Removed, len(out), len(errs))
	}
	return out, ops, errors.Join(errs...)
}

// MarkerClicked implements EventSink.
func (c *Controller) MarkerClicked(handleID string) {
	c.mu.RLock()
	fountainID, ok := c.byHandle[handleID]
	c.mu.RUnlock()
	if !ok {
		c.logger.Printf("MARKERS click on unknown handle=%s", handleID)
		return
	}
	c.events <- Event{Kind: EventMarkerClicked, FountainID: fountainID}
}

// FavoriteRequested implements EventSink.
func (c *Controller) FavoriteRequested(fountainID string) {
	c.events <- Event{Kind: EventFavoriteRequested, FountainID: fountainID}
}
