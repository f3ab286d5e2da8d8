package model

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed seed.json
var seedJSON []byte

// SeedFountains returns the bundled list of known fountains.
// Each call returns a fresh slice.
func SeedFountains() ([]Fountain, error) {
	var fountains []Fountain
	if err := json.Unmarshal(seedJSON, &fountains); err != nil {
		return nil, fmt.Errorf("decoding seed list: %w", err)
	}
	for i, f := range fountains {
		if err := f.Location.Validate(); err != nil {
			return nil, fmt.Errorf("seed %q: %w", f.ID, err)
		}
		fountains[i].IsOpen = true
	}
	return fountains, nil
}
