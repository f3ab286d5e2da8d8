package components

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/rendis/spottet/internal/engine/markers"
)

// MarkerLayer holds the markers the terminal map draws. The orchestrator
// writes to it from its own goroutine; the view reads it on every render.
type MarkerLayer struct {
	mu      sync.RWMutex
	sink    markers.EventSink
	markers map[string]markers.Marker
}

func NewMarkerLayer() *MarkerLayer {
	return &MarkerLayer{markers: make(map[string]markers.Marker)}
}

func (l *MarkerLayer) Attach(sink markers.EventSink) {
	l.mu.Lock()
	l.sink = sink
	l.mu.Unlock()
}

func (l *MarkerLayer) Create(m markers.Marker) (string, error) {
	id := uuid.NewString()
	l.mu.Lock()
	l.markers[id] = m
	l.mu.Unlock()
	return id, nil
}

func (l *MarkerLayer) Update(handleID string, m markers.Marker) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.markers[handleID]; !ok {
		return fmt.Errorf("marker %s not on map", handleID)
	}
	l.markers[handleID] = m
	return nil
}

func (l *MarkerLayer) Remove(handleID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.markers[handleID]; !ok {
		return fmt.Errorf("marker %s not on map", handleID)
	}
	delete(l.markers, handleID)
	return nil
}

// Markers returns what is on the map, ordered by fountain ID.
func (l *MarkerLayer) Markers() []markers.Marker {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]markers.Marker, 0, len(l.markers))
	for _, m := range l.markers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FountainID < out[j].FountainID })
	return out
}

// Click reports a click on the marker for fountainID. It returns false when
// that fountain has no marker.
func (l *MarkerLayer) Click(fountainID string) bool {
	l.mu.RLock()
	sink := l.sink
	var handle string
	for id, m := range l.markers {
		if m.FountainID == fountainID {
			handle = id
			break
		}
	}
	l.mu.RUnlock()

	if sink == nil || handle == "" {
		return false
	}
	sink.MarkerClicked(handle)
	return true
}

// RequestFavorite is the favorite button in a marker's info panel.
func (l *MarkerLayer) RequestFavorite(fountainID string) {
	l.mu.RLock()
	sink := l.sink
	l.mu.RUnlock()
	if sink != nil {
		sink.FavoriteRequested(fountainID)
	}
}
