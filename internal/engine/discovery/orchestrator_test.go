package discovery

import (
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rendis/spottet/internal/engine/markers"
	"github.com/rendis/spottet/internal/model"
)

var discard = log.New(io.Discard, "", 0)

var home = model.Coordinate{Latitude: 59.33, Longitude: 18.07}

type fakeSearcher struct {
	mu         sync.Mutex
	nearCenter []model.Coordinate
	textBias   []*model.Coordinate

	near func(ctx context.Context, center model.Coordinate) ([]model.CandidatePlace, error)
	text func(ctx context.Context, query string) ([]model.CandidatePlace, error)
}

func (s *fakeSearcher) SearchNear(ctx context.Context, center model.Coordinate, radius float64) ([]model.CandidatePlace, error) {
	s.mu.Lock()
	s.nearCenter = append(s.nearCenter, center)
	fn := s.near
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, center)
}

func (s *fakeSearcher) SearchByText(ctx context.Context, query string, bias *model.Coordinate) ([]model.CandidatePlace, error) {
	s.mu.Lock()
	s.textBias = append(s.textBias, bias)
	fn := s.text
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, query)
}

func (s *fakeSearcher) nearCalls() []model.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Coordinate(nil), s.nearCenter...)
}

type fakeStore struct {
	mu    sync.Mutex
	saves int
	last  []model.Fountain
}

func (s *fakeStore) SaveFountains(ctx context.Context, set []model.Fountain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.last = set
	return nil
}

func candidate(id, name string, lat, lng float64) model.CandidatePlace {
	return model.CandidatePlace{ID: id, Name: name, Location: model.Coordinate{Latitude: lat, Longitude: lng}}
}

func newTestOrchestrator(t *testing.T, s Searcher, loc Locator, mutate func(*Options)) (*Orchestrator, *markers.MemoryLayer) {
	t.Helper()
	seeds, err := model.SeedFountains()
	if err != nil {
		t.Fatalf("SeedFountains: %v", err)
	}
	layer := markers.NewMemoryLayer()
	opts := Options{
		Fountains:    seeds,
		Searcher:     s,
		Locator:      loc,
		Layer:        layer,
		Logger:       discard,
		ErrorDisplay: time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}
	o, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o, layer
}

func fountainIDs(set []model.Fountain) []string {
	out := make([]string, len(set))
	for i, f := range set {
		out[i] = f.ID
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Logger: discard}); err == nil {
		t.Fatal("expected error without searcher, locator and layer")
	}
}

func TestStartMergesNearbyResultsAfterSeeds(t *testing.T) {
	s := &fakeSearcher{
		near: func(ctx context.Context, center model.Coordinate) ([]model.CandidatePlace, error) {
			return []model.CandidatePlace{
				candidate("p-a", "Humlegården", 59.3395, 18.0720),
				candidate("p-b", "", 59.3170, 18.0640),
			}, nil
		},
	}
	store := &fakeStore{}
	o, layer := newTestOrchestrator(t, s, StaticLocator{Position: home}, func(opts *Options) { opts.Store = store })

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap := o.Snapshot()
	if snap.State != StateReady {
		t.Errorf("state = %s, want ready", snap.State)
	}
	got := strings.Join(fountainIDs(snap.Fountains), ",")
	if got != "1,2,3,p-a,p-b" {
		t.Errorf("order = %s", got)
	}
	if snap.Fountains[4].Name != model.PlaceholderName || snap.Fountains[4].Address != model.PlaceholderAddress {
		t.Errorf("placeholders not applied: %+v", snap.Fountains[4])
	}
	if snap.UsingFallback || snap.Reference != home {
		t.Errorf("reference = %v fallback = %v", snap.Reference, snap.UsingFallback)
	}
	for _, f := range snap.Fountains {
		if f.DistanceKm <= 0 || f.DistanceKm > 5 {
			t.Errorf("%s distance %.1f not computed from reference", f.ID, f.DistanceKm)
		}
	}
	if n := len(layer.Markers()); n != 5 {
		t.Errorf("layer shows %d markers, want 5", n)
	}
	if store.saves != 1 || len(store.last) != 5 {
		t.Errorf("store saves=%d last=%d", store.saves, len(store.last))
	}
	if calls := s.nearCalls(); len(calls) != 1 || calls[0] != home {
		t.Errorf("nearby calls = %v", calls)
	}
	if o.Stats().CandidatesSeen.Load() != 2 {
		t.Errorf("CandidatesSeen = %d", o.Stats().CandidatesSeen.Load())
	}
}

func TestStartTwiceFails(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeSearcher{}, StaticLocator{Position: home}, nil)
	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := o.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("err = %v, want ErrAlreadyStarted", err)
	}
}

func TestStartFallsBackWhenLocatingTimesOut(t *testing.T) {
	s := &fakeSearcher{}
	slow := LocatorFunc(func(ctx context.Context) (model.Coordinate, error) {
		<-ctx.Done()
		return model.Coordinate{}, ctx.Err()
	})
	o, _ := newTestOrchestrator(t, s, slow, func(opts *Options) { opts.LocateTimeout = 20 * time.Millisecond })

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := o.Snapshot()
	if !snap.UsingFallback || snap.Reference != FallbackLocation {
		t.Errorf("reference = %v fallback = %v", snap.Reference, snap.UsingFallback)
	}
	if snap.Status.Kind != StatusAdvisory || !strings.Contains(snap.Status.Message, "too long") {
		t.Errorf("status = %+v", snap.Status)
	}
	if snap.State != StateReady {
		t.Errorf("state = %s, advisory must not put the engine in error", snap.State)
	}
	if calls := s.nearCalls(); len(calls) != 1 || calls[0] != FallbackLocation {
		t.Errorf("nearby search centered on %v, want fallback", calls)
	}
}

func TestStartClassifiesDeniedPermission(t *testing.T) {
	denied := LocatorFunc(func(ctx context.Context) (model.Coordinate, error) {
		return model.Coordinate{}, ErrPermissionDenied
	})
	o, _ := newTestOrchestrator(t, &fakeSearcher{}, denied, nil)
	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if msg := o.Snapshot().Status.Message; !strings.Contains(msg, "denied") {
		t.Errorf("status message = %q", msg)
	}
}

func TestStaleTextResultIsDiscarded(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	s := &fakeSearcher{
		text: func(ctx context.Context, query string) ([]model.CandidatePlace, error) {
			if query == "first" {
				close(firstStarted)
				<-releaseFirst
				return []model.CandidatePlace{candidate("old", "Old", 59.32, 18.06)}, nil
			}
			return []model.CandidatePlace{candidate("new", "New", 59.33, 18.05)}, nil
		},
	}
	o, _ := newTestOrchestrator(t, s, StaticLocator{Position: home}, nil)

	type result struct {
		applied bool
		err     error
	}
	firstDone := make(chan result, 1)
	go func() {
		applied, err := o.SearchText(context.Background(), "first")
		firstDone <- result{applied, err}
	}()
	<-firstStarted

	if st := o.Snapshot().State; st != StateSearchingText {
		t.Errorf("state while in flight = %s", st)
	}

	applied, err := o.SearchText(context.Background(), "second")
	if err != nil || !applied {
		t.Fatalf("second search applied=%v err=%v", applied, err)
	}

	close(releaseFirst)
	r := <-firstDone
	if r.err != nil || r.applied {
		t.Fatalf("stale search applied=%v err=%v, want dropped silently", r.applied, r.err)
	}

	snap := o.Snapshot()
	got := strings.Join(fountainIDs(snap.Fountains), ",")
	if got != "1,2,3,new" {
		t.Errorf("fountains = %s, stale result leaked", got)
	}
	if snap.Query != "second" {
		t.Errorf("query = %q", snap.Query)
	}
	if o.Stats().StaleDiscarded.Load() != 1 {
		t.Errorf("StaleDiscarded = %d", o.Stats().StaleDiscarded.Load())
	}
}

func TestNearbyAndTextDoNotSupersedeEachOther(t *testing.T) {
	nearStarted := make(chan struct{})
	releaseNear := make(chan struct{})
	s := &fakeSearcher{
		near: func(ctx context.Context, center model.Coordinate) ([]model.CandidatePlace, error) {
			close(nearStarted)
			<-releaseNear
			return []model.CandidatePlace{candidate("near", "Near", 59.331, 18.069)}, nil
		},
		text: func(ctx context.Context, query string) ([]model.CandidatePlace, error) {
			return []model.CandidatePlace{candidate("text", "Text", 59.332, 18.068)}, nil
		},
	}
	o, _ := newTestOrchestrator(t, s, StaticLocator{Position: home}, nil)

	started := make(chan error, 1)
	go func() { started <- o.Start(context.Background()) }()
	<-nearStarted

	if _, err := o.SearchText(context.Background(), "park"); err != nil {
		t.Fatal(err)
	}
	close(releaseNear)
	if err := <-started; err != nil {
		t.Fatal(err)
	}

	got := strings.Join(fountainIDs(o.Snapshot().Fountains), ",")
	if got != "1,2,3,text,near" {
		t.Errorf("fountains = %s", got)
	}
}

func TestSearchTextBiasesTowardsReference(t *testing.T) {
	s := &fakeSearcher{}
	o, _ := newTestOrchestrator(t, s, StaticLocator{Position: home}, nil)

	if _, err := o.SearchText(context.Background(), "fontän"); err != nil {
		t.Fatal(err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := o.SearchText(context.Background(), "fontän"); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.textBias) != 2 {
		t.Fatalf("text calls = %d", len(s.textBias))
	}
	if s.textBias[0] != nil {
		t.Errorf("bias before locating = %v, want none", *s.textBias[0])
	}
	if s.textBias[1] == nil || *s.textBias[1] != home {
		t.Errorf("bias after locating = %v", s.textBias[1])
	}
}

func TestSearchTextBeforeLocatingKeepsDistances(t *testing.T) {
	s := &fakeSearcher{
		text: func(ctx context.Context, query string) ([]model.CandidatePlace, error) {
			return []model.CandidatePlace{candidate("t1", "Parkfontän", 59.34, 18.06)}, nil
		},
	}
	o, _ := newTestOrchestrator(t, s, StaticLocator{Position: home}, nil)
	before := o.Snapshot().Fountains

	applied, err := o.SearchText(context.Background(), "park")
	if err != nil || !applied {
		t.Fatalf("applied = %v err = %v", applied, err)
	}
	snap := o.Snapshot()
	if snap.HasReference {
		t.Fatal("reference set without locating")
	}
	if got := fountainIDs(snap.Fountains); strings.Join(got, ",") != "1,2,3,t1" {
		t.Fatalf("ids = %v", got)
	}
	for i, f := range before {
		if snap.Fountains[i].DistanceKm != f.DistanceKm {
			t.Errorf("%s distance = %.1f, want %.1f", f.ID, snap.Fountains[i].DistanceKm, f.DistanceKm)
		}
	}
	if d := snap.Fountains[3].DistanceKm; d != 0 {
		t.Errorf("t1 distance = %.1f, want 0 until located", d)
	}

	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, f := range o.Snapshot().Fountains {
		if f.DistanceKm > 5 {
			t.Errorf("%s distance after locating = %.1f km", f.ID, f.DistanceKm)
		}
	}
}

func TestEmptyQueryIsRejected(t *testing.T) {
	s := &fakeSearcher{}
	o, _ := newTestOrchestrator(t, s, StaticLocator{Position: home}, nil)
	if _, err := o.SearchText(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("err = %v", err)
	}
	if len(s.textBias) != 0 {
		t.Error("provider called for an empty query")
	}
}

func TestSearchFailureKeepsFountainsAndClears(t *testing.T) {
	boom := errors.New("provider down")
	s := &fakeSearcher{
		text: func(ctx context.Context, query string) ([]model.CandidatePlace, error) {
			return nil, boom
		},
	}
	o, layer := newTestOrchestrator(t, s, StaticLocator{Position: home}, func(opts *Options) {
		opts.ErrorDisplay = 30 * time.Millisecond
	})
	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	applied, err := o.SearchText(context.Background(), "park")
	if !errors.Is(err, boom) || applied {
		t.Fatalf("applied=%v err=%v", applied, err)
	}
	snap := o.Snapshot()
	if snap.State != StateError || snap.Status.Kind != StatusError {
		t.Errorf("state = %s status = %+v", snap.State, snap.Status)
	}
	if len(snap.Fountains) != 3 || len(layer.Markers()) != 3 {
		t.Errorf("fountains %d markers %d, want the seeds kept", len(snap.Fountains), len(layer.Markers()))
	}
	if o.Stats().SearchesFailed.Load() != 1 {
		t.Errorf("SearchesFailed = %d", o.Stats().SearchesFailed.Load())
	}

	waitFor(t, "error to clear", func() bool {
		s := o.Snapshot()
		return s.State == StateReady && s.Status.Kind == StatusNone
	})
}

func TestToggleFavoriteSyncsMarkersAndStore(t *testing.T) {
	store := &fakeStore{}
	o, layer := newTestOrchestrator(t, &fakeSearcher{}, StaticLocator{Position: home}, func(opts *Options) { opts.Store = store })
	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	f, err := o.ToggleFavorite("2")
	if err != nil {
		t.Fatal(err)
	}
	if !f.IsFavorite {
		t.Error("fountain 2 should be a favorite")
	}
	for _, m := range layer.Markers() {
		if m.FountainID == "2" && m.Style.Emphasis != markers.EmphasisBounce {
			t.Error("marker for 2 not updated")
		}
	}

	if _, err := o.ReportWorking("3", true); err != nil {
		t.Fatal(err)
	}
	for _, m := range layer.Markers() {
		if m.FountainID == "3" && m.Style.Variant != markers.VariantWorking {
			t.Error("marker for 3 not updated")
		}
	}
	if store.saves != 3 {
		t.Errorf("saves = %d, want one per applied change", store.saves)
	}

	if _, err := o.ToggleFavorite("missing"); !errors.Is(err, ErrUnknownFountain) {
		t.Errorf("err = %v", err)
	}
}

func TestMarkerEventsDriveSelectionAndFavorites(t *testing.T) {
	o, layer := newTestOrchestrator(t, &fakeSearcher{}, StaticLocator{Position: home}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := o.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if !layer.Click("3") {
		t.Fatal("click failed")
	}
	waitFor(t, "selection", func() bool {
		f, ok := o.Selected()
		return ok && f.ID == "3"
	})

	layer.RequestFavorite("2")
	waitFor(t, "favorite", func() bool {
		for _, f := range o.Snapshot().Fountains {
			if f.ID == "2" {
				return f.IsFavorite
			}
		}
		return false
	})
}

func TestUpdateLocationRefreshesAfterMoving(t *testing.T) {
	s := &fakeSearcher{}
	o, _ := newTestOrchestrator(t, s, StaticLocator{Position: home}, nil)
	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	nudge := model.Coordinate{Latitude: home.Latitude + 0.0009, Longitude: home.Longitude}
	if err := o.UpdateLocation(context.Background(), nudge); err != nil {
		t.Fatal(err)
	}
	if n := len(s.nearCalls()); n != 1 {
		t.Errorf("nearby calls after a short move = %d, want 1", n)
	}
	if o.Snapshot().Reference != nudge {
		t.Error("reference not moved")
	}

	far := model.Coordinate{Latitude: home.Latitude + 0.018, Longitude: home.Longitude}
	if err := o.UpdateLocation(context.Background(), far); err != nil {
		t.Fatal(err)
	}
	calls := s.nearCalls()
	if len(calls) != 2 || calls[1] != far {
		t.Errorf("nearby calls = %v", calls)
	}

	if err := o.UpdateLocation(context.Background(), model.Coordinate{Latitude: 123}); err == nil {
		t.Error("invalid coordinate accepted")
	}
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeSearcher{}, StaticLocator{Position: home}, nil)
	var mu sync.Mutex
	var states []State
	o.OnChange(func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})
	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateLocatingUser, StateSearchingNearby, StateReady}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}
}

func TestVisibleAndFitAll(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeSearcher{}, StaticLocator{Position: home}, nil)
	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	b := o.FitAll()
	if got := len(o.Visible(b)); got != 3 {
		t.Errorf("visible in fit-all bound = %d, want 3", got)
	}
}
