package fountains

import (
	"net/url"
	"strconv"

	"github.com/rendis/spottet/internal/model"
)

// DirectionsURL links to walking directions to f.
func DirectionsURL(f model.Fountain) string {
	dest := strconv.FormatFloat(f.Location.Latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(f.Location.Longitude, 'f', -1, 64)
	return "https://www.google.com/maps/dir/?api=1&destination=" + dest + "&travelmode=walking"
}

// PlaceURL links to the provider's place page, or "" for fountains that did
// not come from a search.
func PlaceURL(f model.Fountain) string {
	if f.SourcePlaceID == "" {
		return ""
	}
	return "https://www.google.com/maps/place/?q=place_id:" + url.QueryEscape(f.SourcePlaceID)
}

// Share is the payload handed to a share sheet.
type Share struct {
	Title string
	Text  string
	URL   string
}

func ShareText(f model.Fountain) Share {
	link := PlaceURL(f)
	if link == "" {
		link = DirectionsURL(f)
	}
	return Share{
		Title: model.PlaceholderName + ": " + f.Name,
		Text:  "Hittade denna fontän på " + f.Address,
		URL:   link,
	}
}
