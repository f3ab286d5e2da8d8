package discovery

import (
	"sync/atomic"
	"time"

	"github.com/rendis/spottet/internal/model"
)

type State int

const (
	StateIdle State = iota
	StateLocatingUser
	StateSearchingNearby
	StateSearchingText
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLocatingUser:
		return "locating"
	case StateSearchingNearby:
		return "searching_nearby"
	case StateSearchingText:
		return "searching_text"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusAdvisory
	StatusError
)

// Status is a transient message for the user. It clears itself after the
// configured display window.
type Status struct {
	Kind    StatusKind
	Message string
	At      time.Time
}

// Snapshot is a consistent copy of the orchestrator's state.
type Snapshot struct {
	State         State
	Fountains     []model.Fountain
	Reference     model.Coordinate
	HasReference  bool
	UsingFallback bool
	Query         string
	Selected      string
	Status        Status
}

// Stats counts search activity over the orchestrator's lifetime.
type Stats struct {
	SearchesIssued atomic.Int64
	SearchesFailed atomic.Int64
	StaleDiscarded atomic.Int64
	CandidatesSeen atomic.Int64
}

type searchKind int

const (
	kindNearby searchKind = iota
	kindText
)

func (k searchKind) String() string {
	if k == kindText {
		return "text"
	}
	return "nearby"
}

// session tracks issued searches. Every request gets the next sequence
// number; a response is current only if no newer request of the same kind
// was issued after it.
type session struct {
	query string

	reference    model.Coordinate
	hasReference bool

	nearbyCenter    model.Coordinate
	hasNearbyCenter bool

	seq      uint64
	latest   map[searchKind]uint64
	inFlight map[uint64]searchKind
}

func newSession() session {
	return session{
		latest:   make(map[searchKind]uint64),
		inFlight: make(map[uint64]searchKind),
	}
}

func (s *session) begin(kind searchKind) uint64 {
	s.seq++
	s.latest[kind] = s.seq
	s.inFlight[s.seq] = kind
	return s.seq
}

// end retires seq and reports whether its response may be applied.
func (s *session) end(seq uint64, kind searchKind) bool {
	delete(s.inFlight, seq)
	return s.latest[kind] == seq
}

func (s *session) pending(kind searchKind) int {
	n := 0
	for _, k := range s.inFlight {
		if k == kind {
			n++
		}
	}
	return n
}
