package places

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rendis/spottet/internal/model"
)

// ParseMapResponse turns a tbm=map response into candidates, keeping the
// response order. Records without a name are skipped.
func ParseMapResponse(body []byte) ([]model.CandidatePlace, error) {
	// Strip anti-XSS prefix )]}'\n
	if idx := bytes.IndexByte(body, '\n'); idx >= 0 && idx < 10 {
		body = body[idx+1:]
	}

	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding map response: %w", err)
	}

	// Result records are at root[0][1][1..N][14]; index 0 is search metadata
	items := safeSlice(safeGet(raw, 0, 1))
	if len(items) == 0 {
		return nil, nil
	}

	var candidates []model.CandidatePlace
	for i := 1; i < len(items); i++ {
		rec := safeSlice(safeGet(items, i, 14))
		if len(rec) == 0 {
			continue
		}

		name := safeString(safeGet(rec, 11))
		if name == "" {
			continue
		}

		id := safeString(safeGet(rec, 78))
		if id == "" {
			id = safeString(safeGet(rec, 10))
		}

		c := model.CandidatePlace{
			ID:      id,
			Name:    name,
			Address: safeString(safeGet(rec, 18)),
			Location: model.Coordinate{
				Latitude:  safeFloat(safeGet(rec, 9, 2)),
				Longitude: safeFloat(safeGet(rec, 9, 3)),
			},
			Rating: safeFloat(safeGet(rec, 4, 7)),
		}
		if thumb := safeString(safeGet(rec, 157)); thumb != "" {
			c.PhotoRefs = []string{thumb}
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// safeGet navigates nested []any arrays by index path without panicking.
func safeGet(data any, path ...int) any {
	current := data
	for _, idx := range path {
		slice, ok := current.([]any)
		if !ok || idx < 0 || idx >= len(slice) {
			return nil
		}
		current = slice[idx]
	}
	return current
}

func safeSlice(data any) []any {
	slice, _ := data.([]any)
	return slice
}

// safeString extracts a string from any. Handles string, json.Number and float64.
func safeString(data any) string {
	switch v := data.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// safeFloat extracts a float64 from any. Handles float64, json.Number and numeric strings.
func safeFloat(data any) float64 {
	switch v := data.(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	}
	return 0
}
