package fountains

import (
	"github.com/rendis/spottet/internal/engine/geo"
	"github.com/rendis/spottet/internal/model"
)

// Find returns the fountain with id.
func Find(set []model.Fountain, id string) (model.Fountain, bool) {
	for _, f := range set {
		if f.ID == id {
			return f, true
		}
	}
	return model.Fountain{}, false
}

// ToggleFavorite flips IsFavorite on id and returns the new set and entry.
// ok is false when id is unknown, in which case set is returned unchanged.
func ToggleFavorite(set []model.Fountain, id string) (out []model.Fountain, updated model.Fountain, ok bool) {
	return edit(set, id, func(f *model.Fountain) { f.IsFavorite = !f.IsFavorite })
}

// SetWorking records a working-status report for id.
func SetWorking(set []model.Fountain, id string, working bool) (out []model.Fountain, updated model.Fountain, ok bool) {
	return edit(set, id, func(f *model.Fountain) { f.IsWorking = working })
}

// WithDistances returns a copy of set with distances measured from ref.
func WithDistances(set []model.Fountain, ref model.Coordinate) []model.Fountain {
	out := make([]model.Fountain, len(set))
	for i, f := range set {
		f.DistanceKm = geo.DistanceKm(ref, f.Location)
		out[i] = f
	}
	return out
}

func edit(set []model.Fountain, id string, fn func(*model.Fountain)) ([]model.Fountain, model.Fountain, bool) {
	for i := range set {
		if set[i].ID != id {
			continue
		}
		out := make([]model.Fountain, len(set))
		copy(out, set)
		fn(&out[i])
		return out, out[i], true
	}
	return set, model.Fountain{}, false
}
