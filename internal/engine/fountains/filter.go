package fountains

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rendis/spottet/internal/model"
)

// normalize removes diacritics and lowercases text, so "fontan" matches "Fontän".
func normalize(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	result, _, _ := transform.String(t, strings.ToLower(s))
	return result
}

// Filter keeps the fountains whose name or address contains every word of
// query. An empty query returns set as is.
func Filter(set []model.Fountain, query string) []model.Fountain {
	words := strings.Fields(normalize(strings.TrimSpace(query)))
	if len(words) == 0 {
		return set
	}

	var out []model.Fountain
	for _, f := range set {
		haystack := normalize(f.Name + " " + f.Address)
		match := true
		for _, w := range words {
			if !strings.Contains(haystack, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, f)
		}
	}
	return out
}

// SortedByDistance returns a copy of set ordered nearest first. Ties keep
// their merge order.
func SortedByDistance(set []model.Fountain) []model.Fountain {
	out := make([]model.Fountain, len(set))
	copy(out, set)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}

// Favorites returns the favorite fountains in merge order.
func Favorites(set []model.Fountain) []model.Fountain {
	var out []model.Fountain
	for _, f := range set {
		if f.IsFavorite {
			out = append(out, f)
		}
	}
	return out
}
