package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rendis/spottet/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "nested", "fountains.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadFountainsKeepsOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seeds, err := model.SeedFountains()
	if err != nil {
		t.Fatal(err)
	}
	set := append([]model.Fountain{}, seeds[2], seeds[0], seeds[1])
	set[0].IsWorking = true
	set[0].DistanceKm = 0.4
	set[1].SourcePlaceID = "ChIJ-sergel"

	if err := s.SaveFountains(ctx, set); err != nil {
		t.Fatalf("SaveFountains: %v", err)
	}
	got, err := s.LoadFountains(ctx)
	if err != nil {
		t.Fatalf("LoadFountains: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d fountains", len(got))
	}
	for i := range set {
		if got[i] != set[i] {
			t.Errorf("fountain %d:\n got  %+v\n want %+v", i, got[i], set[i])
		}
	}

	// A second save replaces rather than appends.
	if err := s.SaveFountains(ctx, set[:1]); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestLoadFromEmptyStore(t *testing.T) {
	s := openTestStore(t)
	got, err := s.LoadFountains(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestRecentSearches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < maxRecentQueries+3; i++ {
		if err := s.RecordSearch(ctx, fmt.Sprintf("q%d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.RecordSearch(ctx, "q5"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordSearch(ctx, "  "); err != nil {
		t.Fatal(err)
	}

	recent, err := s.RecentSearches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != maxRecentQueries {
		t.Fatalf("kept %d searches, want %d", len(recent), maxRecentQueries)
	}
	if recent[0].Query != "q5" || recent[1].Query != "q12" {
		t.Errorf("newest first: %q, %q", recent[0].Query, recent[1].Query)
	}
	for _, r := range recent {
		if r.Query == "q0" || r.Query == "q1" || r.Query == "q2" {
			t.Errorf("old query %q not trimmed", r.Query)
		}
	}
}
