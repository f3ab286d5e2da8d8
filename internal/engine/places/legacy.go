package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rendis/spottet/internal/model"
)

const legacyBaseURL = "https://maps.googleapis.com/maps/api/place"

type legacyResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []legacyPlace `json:"results"`
}

type legacyPlace struct {
	PlaceID          string  `json:"place_id"`
	Name             string  `json:"name"`
	Vicinity         string  `json:"vicinity"`
	FormattedAddress string  `json:"formatted_address"`
	Rating           float64 `json:"rating"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	OpeningHours *struct {
		OpenNow *bool `json:"open_now"`
	} `json:"opening_hours"`
	Photos []struct {
		PhotoReference string `json:"photo_reference"`
	} `json:"photos"`
}

// legacyProvider talks to the Places Web Service (nearbysearch/textsearch).
type legacyProvider struct {
	baseURL string
	key     string
	t       *transport
}

func newLegacyProvider(baseURL, key string, t *transport) *legacyProvider {
	if baseURL == "" {
		baseURL = legacyBaseURL
	}
	return &legacyProvider{baseURL: baseURL, key: key, t: t}
}

func (p *legacyProvider) Name() string { return ProviderLegacy }

func (p *legacyProvider) Nearby(ctx context.Context, req Request) ([]model.CandidatePlace, error) {
	params := url.Values{}
	params.Set("location", latLngParam(*req.Center))
	params.Set("radius", strconv.FormatFloat(req.RadiusMeters, 'f', 0, 64))
	params.Set("keyword", req.Query)
	params.Set("type", "point_of_interest")

	results, err := p.get(ctx, "nearbysearch", params, req)
	if err != nil {
		return nil, err
	}

	out := make([]model.CandidatePlace, 0, len(results))
	for _, r := range results {
		out = append(out, r.candidate(r.Vicinity))
	}
	return capResults(out, req.ResultCap), nil
}

func (p *legacyProvider) Text(ctx context.Context, req Request) ([]model.CandidatePlace, error) {
	params := url.Values{}
	params.Set("query", req.Query)
	if req.Center != nil {
		params.Set("location", latLngParam(*req.Center))
		params.Set("radius", strconv.FormatFloat(req.RadiusMeters, 'f', 0, 64))
	}

	results, err := p.get(ctx, "textsearch", params, req)
	if err != nil {
		return nil, err
	}

	out := make([]model.CandidatePlace, 0, len(results))
	for _, r := range results {
		address := r.FormattedAddress
		if address == "" {
			address = r.Vicinity
		}
		out = append(out, r.candidate(address))
	}
	return capResults(out, req.ResultCap), nil
}

func (p *legacyProvider) get(ctx context.Context, endpoint string, params url.Values, req Request) ([]legacyPlace, error) {
	params.Set("language", req.Language)
	params.Set("region", req.Region)
	params.Set("key", p.key)

	reqURL := p.baseURL + "/" + endpoint + "/json?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	body, err := p.t.do(httpReq)
	if err != nil {
		return nil, err
	}

	var resp legacyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	switch resp.Status {
	case "OK", "ZERO_RESULTS":
		return resp.Results, nil
	}
	return nil, &ProviderError{Status: resp.Status, Message: resp.ErrorMessage}
}

func (r legacyPlace) candidate(address string) model.CandidatePlace {
	c := model.CandidatePlace{
		ID:      r.PlaceID,
		Name:    r.Name,
		Address: address,
		Location: model.Coordinate{
			Latitude:  r.Geometry.Location.Lat,
			Longitude: r.Geometry.Location.Lng,
		},
		Rating: r.Rating,
	}
	if r.OpeningHours != nil {
		c.OpenNow = r.OpeningHours.OpenNow
	}
	for _, ph := range r.Photos {
		if ph.PhotoReference != "" {
			c.PhotoRefs = append(c.PhotoRefs, ph.PhotoReference)
		}
	}
	return c
}

func latLngParam(c model.Coordinate) string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}
