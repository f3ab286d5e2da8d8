package places

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rendis/spottet/internal/engine/geo"
	"github.com/rendis/spottet/internal/model"
)

const (
	mapsSearchURL = "https://www.google.com/search"
	worldZoom     = 3
)

// mapsProvider uses the keyless Maps search endpoint (tbm=map).
type mapsProvider struct {
	baseURL string
	t       *transport
}

func newMapsProvider(baseURL string, t *transport) *mapsProvider {
	if baseURL == "" {
		baseURL = mapsSearchURL
	}
	return &mapsProvider{baseURL: baseURL, t: t}
}

func (p *mapsProvider) Name() string { return ProviderMaps }

func (p *mapsProvider) Nearby(ctx context.Context, req Request) ([]model.CandidatePlace, error) {
	return p.search(ctx, req)
}

func (p *mapsProvider) Text(ctx context.Context, req Request) ([]model.CandidatePlace, error) {
	return p.search(ctx, req)
}

func (p *mapsProvider) search(ctx context.Context, req Request) ([]model.CandidatePlace, error) {
	var lat, lng float64
	zoom := worldZoom
	if req.Center != nil {
		lat, lng = req.Center.Latitude, req.Center.Longitude
		zoom = geo.ZoomForRadius(lat, req.RadiusMeters)
	}

	params := url.Values{}
	params.Set("tbm", "map")
	params.Set("authuser", "0")
	params.Set("hl", req.Language)
	params.Set("gl", req.Region)
	params.Set("q", req.Query)
	params.Set("pb", BuildPB(lat, lng, zoom, req.ResultCap))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("User-Agent", randomUserAgent())
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", req.Language+";q=0.9,en;q=0.8")
	httpReq.Header.Set("Accept-Encoding", "identity")
	httpReq.Header.Set("Referer", "https://www.google.com/")

	body, err := p.t.do(httpReq)
	if err != nil {
		return nil, err
	}

	candidates, err := ParseMapResponse(body)
	if err != nil {
		return nil, err
	}
	return capResults(candidates, req.ResultCap), nil
}
