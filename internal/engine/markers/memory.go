package markers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryLayer is a Layer that keeps markers in memory. It backs headless runs
// and counts every call it receives.
type MemoryLayer struct {
	mu      sync.Mutex
	sink    EventSink
	markers map[string]Marker
	calls   Ops
	fail    map[string]error // fountain ID -> error returned by Create/Update
}

func NewMemoryLayer() *MemoryLayer {
	return &MemoryLayer{
		markers: make(map[string]Marker),
		fail:    make(map[string]error),
	}
}

func (l *MemoryLayer) Attach(sink EventSink) {
	l.mu.Lock()
	l.sink = sink
	l.mu.Unlock()
}

func (l *MemoryLayer) Create(m Marker) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fail[m.FountainID]; err != nil {
		return "", err
	}
	id := uuid.NewString()
	l.markers[id] = m
	l.calls.Created++
	return id, nil
}

func (l *MemoryLayer) Update(handleID string, m Marker) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.markers[handleID]; !ok {
		return fmt.Errorf("unknown marker %s", handleID)
	}
	if err := l.fail[m.FountainID]; err != nil {
		return err
	}
	l.markers[handleID] = m
	l.calls.Updated++
	return nil
}

func (l *MemoryLayer) Remove(handleID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.markers[handleID]; !ok {
		return fmt.Errorf("unknown marker %s", handleID)
	}
	delete(l.markers, handleID)
	l.calls.Removed++
	return nil
}

// FailOn makes Create and Update fail for fountainID. A nil err clears it.
func (l *MemoryLayer) FailOn(fountainID string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.fail, fountainID)
		return
	}
	l.fail[fountainID] = err
}

// Calls returns the cumulative layer calls.
func (l *MemoryLayer) Calls() Ops {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// Markers returns the displayed markers ordered by fountain ID.
func (l *MemoryLayer) Markers() []Marker {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Marker, 0, len(l.markers))
	for _, m := range l.markers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FountainID < out[j].FountainID })
	return out
}

// Click simulates a click on the marker of fountainID.
func (l *MemoryLayer) Click(fountainID string) bool {
	l.mu.Lock()
	sink := l.sink
	var handle string
	for id, m := range l.markers {
		if m.FountainID == fountainID {
			handle = id
			break
		}
	}
	l.mu.Unlock()

	if sink == nil || handle == "" {
		return false
	}
	sink.MarkerClicked(handle)
	return true
}

// RequestFavorite simulates the favorite button in a marker's info bubble.
func (l *MemoryLayer) RequestFavorite(fountainID string) {
	l.mu.Lock()
	sink := l.sink
	l.mu.Unlock()
	if sink != nil {
		sink.FavoriteRequested(fountainID)
	}
}
