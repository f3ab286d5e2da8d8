// Package fountains holds the pure operations on the fountain set: merging
// search candidates, local edits and the list views built on top.
package fountains

import (
	"github.com/rendis/spottet/internal/engine/geo"
	"github.com/rendis/spottet/internal/model"
)

// Merge folds incoming candidates into existing and returns the new set.
//
// Entries already known by ID get their provider-derived fields refreshed;
// IsFavorite and IsWorking are never touched. Unknown IDs are appended in
// incoming order after the existing entries. Distances are recomputed
// against ref for every entry. Nothing is removed and existing is not
// modified.
func Merge(existing []model.Fountain, incoming []model.CandidatePlace, ref model.Coordinate) []model.Fountain {
	out := MergeKeepDistances(existing, incoming)
	for i := range out {
		out[i].DistanceKm = geo.DistanceKm(ref, out[i].Location)
	}
	return out
}

// MergeKeepDistances is Merge without a reference point. Existing entries
// keep their DistanceKm and new ones start at zero.
func MergeKeepDistances(existing []model.Fountain, incoming []model.CandidatePlace) []model.Fountain {
	out := make([]model.Fountain, len(existing), len(existing)+len(incoming))
	copy(out, existing)

	index := make(map[string]int, len(out))
	for i, f := range out {
		if _, dup := index[f.ID]; !dup {
			index[f.ID] = i
		}
	}

	for _, c := range incoming {
		if i, ok := index[c.ID]; ok {
			refresh(&out[i], c)
			continue
		}
		index[c.ID] = len(out)
		out = append(out, fromCandidate(c))
	}
	return out
}

// refresh copies the fields a provider owns. Missing values never erase
// what is already known.
func refresh(f *model.Fountain, c model.CandidatePlace) {
	if c.Name != "" {
		f.Name = c.Name
	}
	if c.Address != "" {
		f.Address = c.Address
	}
	if c.Rating > 0 {
		f.Rating = c.Rating
	}
	if c.OpenNow != nil {
		f.IsOpen = *c.OpenNow
		f.Hours = model.HoursLabel(f.IsOpen)
	}
	if len(c.PhotoRefs) > 0 {
		f.HasPhoto = true
	}
	f.SourcePlaceID = c.ID
}

func fromCandidate(c model.CandidatePlace) model.Fountain {
	open := c.IsOpen()
	f := model.Fountain{
		ID:            c.ID,
		Name:          c.Name,
		Address:       c.Address,
		Location:      c.Location,
		Rating:        c.Rating,
		IsWorking:     open,
		IsFavorite:    false,
		HasPhoto:      len(c.PhotoRefs) > 0,
		Hours:         model.HoursLabel(open),
		IsOpen:        open,
		SourcePlaceID: c.ID,
	}
	if f.Name == "" {
		f.Name = model.PlaceholderName
	}
	if f.Address == "" {
		f.Address = model.PlaceholderAddress
	}
	return f
}
