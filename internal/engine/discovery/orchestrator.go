// Package discovery coordinates locating the user, searching for fountains,
// merging the results and keeping the marker layer in sync.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/rendis/spottet/internal/engine/fountains"
	"github.com/rendis/spottet/internal/engine/geo"
	"github.com/rendis/spottet/internal/engine/markers"
	"github.com/rendis/spottet/internal/model"
)

const (
	DefaultNearbyRadiusMeters = 5000
	DefaultLocateTimeout      = 10 * time.Second
	DefaultErrorDisplay       = 5 * time.Second
	DefaultRefreshDistanceKm  = 1.0
)

var (
	ErrAlreadyStarted  = errors.New("orchestrator already started")
	ErrEmptyQuery      = errors.New("empty search query")
	ErrUnknownFountain = errors.New("unknown fountain")
	// ErrStaleResult marks a response that arrived after a newer request of
	// the same kind. It is logged, never returned.
	ErrStaleResult = errors.New("stale search result")
)

// Searcher is the place-search side, satisfied by *places.Client.
type Searcher interface {
	SearchNear(ctx context.Context, center model.Coordinate, radiusMeters float64) ([]model.CandidatePlace, error)
	SearchByText(ctx context.Context, query string, bias *model.Coordinate) ([]model.CandidatePlace, error)
}

// Store persists the fountain set after every applied change.
type Store interface {
	SaveFountains(ctx context.Context, fountains []model.Fountain) error
}

type Options struct {
	Fountains []model.Fountain
	Searcher  Searcher
	Locator   Locator
	Layer     markers.Layer
	Store     Store // optional
	Logger    *log.Logger

	NearbyRadiusMeters float64
	LocateTimeout      time.Duration
	ErrorDisplay       time.Duration
	RefreshDistanceKm  float64
}

// Orchestrator owns the fountain set. All mutations happen under mu; provider
// and locator calls run outside it.
type Orchestrator struct {
	opts    Options
	logger  *log.Logger
	markers *markers.Controller
	stats   Stats

	mu            sync.Mutex
	started       bool
	locating      bool
	usingFallback bool
	fountains     []model.Fountain
	displayed     []markers.MarkerHandle
	session       session
	selected      string
	status        Status
	statusEpoch   uint64
	errorActive   bool
	listeners     []func(Snapshot)
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Searcher == nil || opts.Locator == nil || opts.Layer == nil {
		return nil, fmt.Errorf("searcher, locator and layer are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.NearbyRadiusMeters <= 0 {
		opts.NearbyRadiusMeters = DefaultNearbyRadiusMeters
	}
	if opts.LocateTimeout <= 0 {
		opts.LocateTimeout = DefaultLocateTimeout
	}
	if opts.ErrorDisplay <= 0 {
		opts.ErrorDisplay = DefaultErrorDisplay
	}
	if opts.RefreshDistanceKm <= 0 {
		opts.RefreshDistanceKm = DefaultRefreshDistanceKm
	}

	initial := make([]model.Fountain, len(opts.Fountains))
	copy(initial, opts.Fountains)

	return &Orchestrator{
		opts:      opts,
		logger:    opts.Logger,
		markers:   markers.NewController(opts.Layer, opts.Logger),
		fountains: initial,
		session:   newSession(),
	}, nil
}

// OnChange registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change and must not block.
func (o *Orchestrator) OnChange(fn func(Snapshot)) {
	o.mu.Lock()
	o.listeners = append(o.listeners, fn)
	o.mu.Unlock()
}

// Start shows the initial fountains, locates the user and runs the first
// nearby search. It returns once that search has been applied or recorded
// as failed. Marker events are handled until ctx is done.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started || o.locating {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.locating = true
	o.syncMarkersLocked()
	o.mu.Unlock()
	o.notify()

	go o.consumeEvents(ctx)

	start := time.Now()
	locCtx, cancel := context.WithTimeout(ctx, o.opts.LocateTimeout)
	position, err := o.opts.Locator.Locate(locCtx)
	cancel()
	if err == nil {
		err = position.Validate()
	}

	o.mu.Lock()
	o.locating = false
	o.started = true
	if err != nil {
		gerr := classifyLocateError(err)
		o.logger.Printf("LOCATE reason=%s err=%v fallback=%s", gerr.Reason, gerr.Err, FallbackLocation)
		position = FallbackLocation
		o.usingFallback = true
		o.setStatusLocked(StatusAdvisory, gerr.Message())
	} else {
		o.logger.Printf("LOCATE position=%s elapsed=%s", position, time.Since(start).Truncate(time.Millisecond))
	}
	o.setReferenceLocked(position)
	seq := o.beginNearbyLocked(position)
	o.mu.Unlock()
	o.notify()

	o.runNearby(ctx, seq, position)
	return nil
}

// UpdateLocation moves the reference point. A new nearby search is issued
// when the user has moved at least RefreshDistanceKm from the center of the
// last one.
func (o *Orchestrator) UpdateLocation(ctx context.Context, position model.Coordinate) error {
	if err := position.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	o.usingFallback = false
	o.setReferenceLocked(position)
	refresh := !o.session.hasNearbyCenter ||
		geo.DistanceKm(o.session.nearbyCenter, position) >= o.opts.RefreshDistanceKm
	var seq uint64
	if refresh {
		seq = o.beginNearbyLocked(position)
	}
	o.mu.Unlock()
	o.notify()

	if !refresh {
		return nil
	}
	_, err := o.runNearby(ctx, seq, position)
	return err
}

// SearchText runs a user text search biased towards the reference location.
// applied is false when a newer text search was issued before this one
// returned; its result is then dropped without error.
func (o *Orchestrator) SearchText(ctx context.Context, query string) (applied bool, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return false, ErrEmptyQuery
	}

	o.mu.Lock()
	seq := o.session.begin(kindText)
	o.session.query = query
	var bias *model.Coordinate
	if o.session.hasReference {
		ref := o.session.reference
		bias = &ref
	}
	o.mu.Unlock()
	o.notify()

	o.stats.SearchesIssued.Add(1)
	candidates, err := o.opts.Searcher.SearchByText(ctx, query, bias)
	return o.finish(ctx, seq, kindText, candidates, err)
}

// beginNearbyLocked issues the sequence number for a nearby search around
// center. The state turns SearchingNearby in the same critical section.
func (o *Orchestrator) beginNearbyLocked(center model.Coordinate) uint64 {
	seq := o.session.begin(kindNearby)
	o.session.nearbyCenter = center
	o.session.hasNearbyCenter = true
	return seq
}

func (o *Orchestrator) runNearby(ctx context.Context, seq uint64, center model.Coordinate) (bool, error) {
	o.stats.SearchesIssued.Add(1)
	candidates, err := o.opts.Searcher.SearchNear(ctx, center, o.opts.NearbyRadiusMeters)
	return o.finish(ctx, seq, kindNearby, candidates, err)
}

func (o *Orchestrator) finish(ctx context.Context, seq uint64, kind searchKind, candidates []model.CandidatePlace, err error) (bool, error) {
	o.mu.Lock()
	if !o.session.end(seq, kind) {
		o.mu.Unlock()
		o.stats.StaleDiscarded.Add(1)
		o.logger.Printf("STALE kind=%s seq=%d err=%v", kind, seq, ErrStaleResult)
		o.notify()
		return false, nil
	}

	if err != nil {
		o.stats.SearchesFailed.Add(1)
		o.logger.Printf("ERROR kind=%s seq=%d err=%v", kind, seq, err)
		o.errorActive = true
		o.setStatusLocked(StatusError, "Search failed. Showing the fountains already known.")
		o.mu.Unlock()
		o.notify()
		return false, err
	}

	o.stats.CandidatesSeen.Add(int64(len(candidates)))
	before := len(o.fountains)
	if o.session.hasReference {
		o.fountains = fountains.Merge(o.fountains, candidates, o.session.reference)
	} else {
		// distances stay as they are until a reference is known
		o.fountains = fountains.MergeKeepDistances(o.fountains, candidates)
	}
	o.logger.Printf("MERGE kind=%s seq=%d candidates=%d added=%d total=%d",
		kind, seq, len(candidates), len(o.fountains)-before, len(o.fountains))
	o.syncMarkersLocked()
	o.persistLocked(ctx)
	o.mu.Unlock()
	o.notify()
	return true, nil
}

// ToggleFavorite flips the favorite flag of id.
func (o *Orchestrator) ToggleFavorite(id string) (model.Fountain, error) {
	return o.edit(id, "favorite", func(set []model.Fountain) ([]model.Fountain, model.Fountain, bool) {
		return fountains.ToggleFavorite(set, id)
	})
}

// ReportWorking records whether the fountain id works.
func (o *Orchestrator) ReportWorking(id string, working bool) (model.Fountain, error) {
	return o.edit(id, "working", func(set []model.Fountain) ([]model.Fountain, model.Fountain, bool) {
		return fountains.SetWorking(set, id, working)
	})
}

func (o *Orchestrator) edit(id, field string, fn func([]model.Fountain) ([]model.Fountain, model.Fountain, bool)) (model.Fountain, error) {
	o.mu.Lock()
	set, updated, ok := fn(o.fountains)
	if !ok {
		o.mu.Unlock()
		return model.Fountain{}, fmt.Errorf("%w: %s", ErrUnknownFountain, id)
	}
	o.fountains = set
	o.logger.Printf("EDIT id=%s field=%s favorite=%v working=%v", id, field, updated.IsFavorite, updated.IsWorking)
	o.syncMarkersLocked()
	o.persistLocked(context.Background())
	o.mu.Unlock()
	o.notify()
	return updated, nil
}

// Select marks id as the fountain the UI focuses on. An empty id clears it.
func (o *Orchestrator) Select(id string) error {
	o.mu.Lock()
	if id != "" {
		if _, ok := fountains.Find(o.fountains, id); !ok {
			o.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownFountain, id)
		}
	}
	o.selected = id
	o.mu.Unlock()
	o.notify()
	return nil
}

// Selected returns the focused fountain, if any.
func (o *Orchestrator) Selected() (model.Fountain, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.selected == "" {
		return model.Fountain{}, false
	}
	return fountains.Find(o.fountains, o.selected)
}

// Visible returns the fountains inside bound, for map-idle and
// bounds-changed events.
func (o *Orchestrator) Visible(bound orb.Bound) []model.Fountain {
	o.mu.Lock()
	defer o.mu.Unlock()
	return geo.Within(o.fountains, bound)
}

// FitAll returns the bound showing the reference location and every fountain.
func (o *Orchestrator) FitAll() orb.Bound {
	o.mu.Lock()
	defer o.mu.Unlock()
	ref := o.session.reference
	if !o.session.hasReference {
		ref = FallbackLocation
	}
	return geo.FitAll(ref, o.fountains)
}

func (o *Orchestrator) Stats() *Stats {
	return &o.stats
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	set := make([]model.Fountain, len(o.fountains))
	copy(set, o.fountains)
	return Snapshot{
		State:         o.stateLocked(),
		Fountains:     set,
		Reference:     o.session.reference,
		HasReference:  o.session.hasReference,
		UsingFallback: o.usingFallback,
		Query:         o.session.query,
		Selected:      o.selected,
		Status:        o.status,
	}
}

func (o *Orchestrator) stateLocked() State {
	switch {
	case o.errorActive:
		return StateError
	case o.locating:
		return StateLocatingUser
	case o.session.pending(kindNearby) > 0:
		return StateSearchingNearby
	case o.session.pending(kindText) > 0:
		return StateSearchingText
	case o.started:
		return StateReady
	}
	return StateIdle
}

func (o *Orchestrator) setReferenceLocked(position model.Coordinate) {
	o.session.reference = position
	o.session.hasReference = true
	o.fountains = fountains.WithDistances(o.fountains, position)
}

// setStatusLocked shows msg for the display window. A later status replaces
// it and restarts the window.
func (o *Orchestrator) setStatusLocked(kind StatusKind, msg string) {
	o.statusEpoch++
	epoch := o.statusEpoch
	o.status = Status{Kind: kind, Message: msg, At: time.Now()}
	time.AfterFunc(o.opts.ErrorDisplay, func() { o.clearStatus(epoch) })
}

func (o *Orchestrator) clearStatus(epoch uint64) {
	o.mu.Lock()
	if o.statusEpoch != epoch {
		o.mu.Unlock()
		return
	}
	o.status = Status{}
	o.errorActive = false
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) syncMarkersLocked() {
	displayed, _, err := o.markers.Reconcile(o.displayed, o.fountains)
	o.displayed = displayed
	if err != nil {
		o.logger.Printf("ERROR markers err=%v", err)
	}
}

func (o *Orchestrator) persistLocked(ctx context.Context) {
	if o.opts.Store == nil {
		return
	}
	if err := o.opts.Store.SaveFountains(ctx, o.fountains); err != nil {
		o.logger.Printf("ERROR persist count=%d err=%v", len(o.fountains), err)
	}
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	if len(o.listeners) == 0 {
		o.mu.Unlock()
		return
	}
	snap := o.snapshotLocked()
	listeners := append([]func(Snapshot){}, o.listeners...)
	o.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (o *Orchestrator) consumeEvents(ctx context.Context) {
	events := o.markers.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			var err error
			switch ev.Kind {
			case markers.EventMarkerClicked:
				err = o.Select(ev.FountainID)
			case markers.EventFavoriteRequested:
				_, err = o.ToggleFavorite(ev.FountainID)
			}
			if err != nil {
				o.logger.Printf("ERROR event=%s id=%s err=%v", ev.Kind, ev.FountainID, err)
			}
		}
	}
}
