package fountains

import (
	"reflect"
	"testing"

	"github.com/rendis/spottet/internal/model"
)

var stockholm = model.Coordinate{Latitude: 59.3293, Longitude: 18.0686}

func seed(t *testing.T) []model.Fountain {
	t.Helper()
	fs, err := model.SeedFountains()
	if err != nil {
		t.Fatalf("SeedFountains: %v", err)
	}
	return fs
}

func boolPtr(b bool) *bool { return &b }

func ids(set []model.Fountain) []string {
	out := make([]string, len(set))
	for i, f := range set {
		out[i] = f.ID
	}
	return out
}

func TestMergeAppendsNewCandidatesAfterExisting(t *testing.T) {
	incoming := []model.CandidatePlace{
		{ID: "place-b", Name: "Fontän B", Address: "Gatan 2", Location: model.Coordinate{Latitude: 59.33, Longitude: 18.05}},
		{ID: "place-a", Name: "Fontän A", Address: "Gatan 1", Location: model.Coordinate{Latitude: 59.32, Longitude: 18.07}},
	}

	got := Merge(seed(t), incoming, stockholm)

	want := []string{"1", "2", "3", "place-b", "place-a"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("ids = %v, want %v", ids(got), want)
	}
	for _, f := range got[3:] {
		if f.IsFavorite {
			t.Errorf("%s: new entry is favorite", f.ID)
		}
		if !f.IsWorking || !f.IsOpen || f.Hours != model.HoursOpen {
			t.Errorf("%s: unknown open signal should mean open and working: %+v", f.ID, f)
		}
		if f.SourcePlaceID != f.ID {
			t.Errorf("%s: source place id = %q", f.ID, f.SourcePlaceID)
		}
		if f.DistanceKm == 0 {
			t.Errorf("%s: distance not computed", f.ID)
		}
	}
}

func TestMergeKeepsLocallyOwnedFields(t *testing.T) {
	existing := seed(t)
	incoming := []model.CandidatePlace{{
		ID:       "1",
		Name:     "Sergels Torg Dricksvatten",
		Address:  "Sergels Torg 1, 111 57 Stockholm",
		Location: existing[0].Location,
	}}

	got := Merge(existing, incoming, stockholm)

	f := got[0]
	if !f.IsWorking || !f.IsFavorite {
		t.Errorf("locally owned fields changed: working=%v favorite=%v", f.IsWorking, f.IsFavorite)
	}
	if f.Name != "Sergels Torg Dricksvatten" || f.Address != "Sergels Torg 1, 111 57 Stockholm" {
		t.Errorf("provider fields not refreshed: %+v", f)
	}
	if f.Hours != "24/7" {
		t.Errorf("hours overwritten without an open signal: %q", f.Hours)
	}
	if f.Rating != 4.5 || !f.HasPhoto {
		t.Errorf("missing values erased known ones: rating=%v photo=%v", f.Rating, f.HasPhoto)
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestMergeClosedSignal(t *testing.T) {
	existing := seed(t)

	got := Merge(existing, []model.CandidatePlace{
		{ID: "2", OpenNow: boolPtr(false), Location: existing[1].Location},
		{ID: "new", OpenNow: boolPtr(false), Location: stockholm},
	}, stockholm)

	known := got[1]
	if known.IsOpen || known.Hours != model.HoursClosed {
		t.Errorf("open state not refreshed: %+v", known)
	}
	if !known.IsWorking {
		t.Error("closed signal must not change the working report of a known fountain")
	}

	added := got[3]
	if added.IsWorking {
		t.Error("new closed fountain should start as not working")
	}
	if added.Name != model.PlaceholderName || added.Address != model.PlaceholderAddress {
		t.Errorf("placeholders missing: %q / %q", added.Name, added.Address)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	incoming := []model.CandidatePlace{
		{ID: "1", Name: "Ny", Rating: 4.9, OpenNow: boolPtr(false), PhotoRefs: []string{"x"}, Location: stockholm},
		{ID: "n1", Name: "N1", Location: model.Coordinate{Latitude: 59.31, Longitude: 18.02}},
		{ID: "n2", Location: model.Coordinate{Latitude: 59.35, Longitude: 18.1}},
	}

	once := Merge(seed(t), incoming, stockholm)
	twice := Merge(once, incoming, stockholm)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent:\nonce  = %+v\ntwice = %+v", once, twice)
	}
}

func TestMergeNoDuplicateIDs(t *testing.T) {
	incoming := []model.CandidatePlace{
		{ID: "dup", Name: "First", Location: stockholm},
		{ID: "3", Location: stockholm},
		{ID: "dup", Name: "Second", Location: stockholm},
	}

	got := Merge(seed(t), incoming, stockholm)

	seen := map[string]bool{}
	for _, f := range got {
		if seen[f.ID] {
			t.Fatalf("duplicate id %q in %v", f.ID, ids(got))
		}
		seen[f.ID] = true
	}
	if len(got) != 4 {
		t.Errorf("len = %d, want 4", len(got))
	}
	if got[3].Name != "Second" {
		t.Errorf("later duplicate should refresh the earlier insert, name = %q", got[3].Name)
	}
}

func TestMergeDoesNotModifyInput(t *testing.T) {
	existing := seed(t)
	before := make([]model.Fountain, len(existing))
	copy(before, existing)

	Merge(existing, []model.CandidatePlace{{ID: "1", Name: "Changed", Location: stockholm}}, model.Coordinate{Latitude: 10, Longitude: 10})

	if !reflect.DeepEqual(existing, before) {
		t.Error("Merge mutated its input")
	}
}

func TestFavoriteSurvivesMerge(t *testing.T) {
	set, toggled, ok := ToggleFavorite(seed(t), "2")
	if !ok || !toggled.IsFavorite {
		t.Fatalf("toggle failed: ok=%v %+v", ok, toggled)
	}

	got := Merge(set, []model.CandidatePlace{{ID: "2", Name: "Kungsträdgården", Location: stockholm}}, stockholm)

	f, _ := Find(got, "2")
	if !f.IsFavorite {
		t.Error("favorite lost after merge")
	}
}

func TestMergeEmptyIncomingRecomputesDistances(t *testing.T) {
	existing := seed(t)
	far := model.Coordinate{Latitude: 57.7089, Longitude: 11.9746}

	got := Merge(existing, nil, far)

	if len(got) != len(existing) {
		t.Fatalf("len = %d", len(got))
	}
	for _, f := range got {
		if f.DistanceKm < 390 {
			t.Errorf("%s: distance %v not measured from the new reference", f.ID, f.DistanceKm)
		}
	}
}

func TestMergeKeepDistances(t *testing.T) {
	existing := WithDistances(seed(t), stockholm)
	incoming := []model.CandidatePlace{
		{ID: "2", Name: "Kungsträdgården Fontän", Location: model.Coordinate{Latitude: 59.3312, Longitude: 18.0711}},
		{ID: "place-x", Name: "Fontän X", Location: model.Coordinate{Latitude: 59.34, Longitude: 18.06}},
	}

	got := MergeKeepDistances(existing, incoming)
	if len(got) != 4 {
		t.Fatalf("got %d fountains, want 4", len(got))
	}
	for i := range existing {
		if got[i].DistanceKm != existing[i].DistanceKm {
			t.Errorf("%s distance = %.3f, want %.3f", got[i].ID, got[i].DistanceKm, existing[i].DistanceKm)
		}
	}
	if got[3].DistanceKm != 0 {
		t.Errorf("new entry distance = %.3f, want 0", got[3].DistanceKm)
	}
}
