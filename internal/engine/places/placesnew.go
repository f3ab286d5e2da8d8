package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rendis/spottet/internal/model"
)

const (
	placesBaseURL   = "https://places.googleapis.com/v1"
	placesFieldMask = "places.id,places.displayName,places.formattedAddress,places.location," +
		"places.rating,places.currentOpeningHours.openNow,places.photos"
	maxBiasRadius = 50000
)

type searchTextRequest struct {
	TextQuery      string        `json:"textQuery"`
	LanguageCode   string        `json:"languageCode,omitempty"`
	RegionCode     string        `json:"regionCode,omitempty"`
	MaxResultCount int           `json:"maxResultCount,omitempty"`
	LocationBias   *locationBias `json:"locationBias,omitempty"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type searchTextResponse struct {
	Places []placeObject `json:"places"`
}

type placeObject struct {
	ID          string `json:"id"`
	DisplayName *struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress    string  `json:"formattedAddress"`
	Location            latLng  `json:"location"`
	Rating              float64 `json:"rating"`
	CurrentOpeningHours *struct {
		OpenNow *bool `json:"openNow"`
	} `json:"currentOpeningHours"`
	Photos []struct {
		Name string `json:"name"`
	} `json:"photos"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// placesProvider talks to the Places API (New). Both nearby and text searches
// go through places:searchText; nearby uses the fountain keywords and a
// circular bias around the center.
type placesProvider struct {
	baseURL string
	key     string
	t       *transport
}

func newPlacesProvider(baseURL, key string, t *transport) *placesProvider {
	if baseURL == "" {
		baseURL = placesBaseURL
	}
	return &placesProvider{baseURL: baseURL, key: key, t: t}
}

func (p *placesProvider) Name() string { return ProviderPlaces }

func (p *placesProvider) Nearby(ctx context.Context, req Request) ([]model.CandidatePlace, error) {
	return p.searchText(ctx, req)
}

func (p *placesProvider) Text(ctx context.Context, req Request) ([]model.CandidatePlace, error) {
	return p.searchText(ctx, req)
}

func (p *placesProvider) searchText(ctx context.Context, req Request) ([]model.CandidatePlace, error) {
	payload := searchTextRequest{
		TextQuery:      req.Query,
		LanguageCode:   req.Language,
		RegionCode:     req.Region,
		MaxResultCount: req.ResultCap,
	}
	if req.Center != nil {
		radius := req.RadiusMeters
		if radius > maxBiasRadius {
			radius = maxBiasRadius
		}
		payload.LocationBias = &locationBias{Circle: circle{
			Center: latLng{Latitude: req.Center.Latitude, Longitude: req.Center.Longitude},
			Radius: radius,
		}}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/places:searchText", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", p.key)
	httpReq.Header.Set("X-Goog-FieldMask", placesFieldMask)

	body, err := p.t.do(httpReq)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			var apiErr apiErrorBody
			if json.Unmarshal(se.Body, &apiErr) == nil && apiErr.Error.Status != "" {
				return nil, fmt.Errorf("%w: %w", se, &ProviderError{Status: apiErr.Error.Status, Message: apiErr.Error.Message})
			}
		}
		return nil, err
	}

	var resp searchTextResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding searchText response: %w", err)
	}

	out := make([]model.CandidatePlace, 0, len(resp.Places))
	for _, pl := range resp.Places {
		out = append(out, pl.candidate())
	}
	return capResults(out, req.ResultCap), nil
}

func (pl placeObject) candidate() model.CandidatePlace {
	c := model.CandidatePlace{
		ID:      pl.ID,
		Address: pl.FormattedAddress,
		Location: model.Coordinate{
			Latitude:  pl.Location.Latitude,
			Longitude: pl.Location.Longitude,
		},
		Rating: pl.Rating,
	}
	if pl.DisplayName != nil {
		c.Name = pl.DisplayName.Text
	}
	if pl.CurrentOpeningHours != nil {
		c.OpenNow = pl.CurrentOpeningHours.OpenNow
	}
	for _, ph := range pl.Photos {
		if ph.Name != "" {
			c.PhotoRefs = append(c.PhotoRefs, ph.Name)
		}
	}
	return c
}
