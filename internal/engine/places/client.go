package places

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/rendis/spottet/internal/model"
)

// Provider names accepted in Config.Provider.
const (
	ProviderPlaces = "places"
	ProviderLegacy = "legacy"
	ProviderMaps   = "maps"
)

const (
	nearbyKeywords = "water fountain drinking fountain vattenpost dricksvatten water tap"
	textSuffix     = " water fountain drinking fountain dricksvatten"

	defaultResultCap      = 20
	defaultTextBiasMeters = 10000
	defaultTimeout        = 15 * time.Second

	defaultRequestsPerSecond = 5
	requestBurst             = 3
)

// Config selects and tunes the place-search provider.
type Config struct {
	Provider             string
	APIKey               string
	Language             string
	Region               string
	ResultCap            int
	TextBiasRadiusMeters float64
	ProxyURL             string
	Timeout              time.Duration
	BreakerFailures      uint32
	BreakerCooldown      time.Duration
	RequestsPerSecond    float64 // 0 means defaultRequestsPerSecond
}

// Request is what every provider adapter receives. Center is nil for an
// unbiased text search.
type Request struct {
	Center       *model.Coordinate
	Query        string
	RadiusMeters float64
	ResultCap    int
	Language     string
	Region       string
}

// Provider adapts one external search API to CandidatePlace.
type Provider interface {
	Name() string
	Nearby(ctx context.Context, req Request) ([]model.CandidatePlace, error)
	Text(ctx context.Context, req Request) ([]model.CandidatePlace, error)
}

type Option func(*Client)

// WithProvider bypasses provider construction from Config.
func WithProvider(p Provider) Option {
	return func(c *Client) { c.provider = p }
}

// WithEndpoint points the configured provider at a different base URL.
func WithEndpoint(baseURL string) Option {
	return func(c *Client) { c.endpoint = baseURL }
}

// Client searches for drinking fountains near a point or by text.
// Construct it once and share it; the provider is built on first use.
type Client struct {
	cfg      Config
	logger   *log.Logger
	endpoint string

	once     sync.Once
	provider Provider
	initErr  error
}

func NewClient(cfg Config, logger *log.Logger, opts ...Option) *Client {
	if cfg.ResultCap <= 0 {
		cfg.ResultCap = defaultResultCap
	}
	if cfg.TextBiasRadiusMeters <= 0 {
		cfg.TextBiasRadiusMeters = defaultTextBiasMeters
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Language == "" {
		cfg.Language = "sv"
	}
	if cfg.Region == "" {
		cfg.Region = "se"
	}

	c := &Client{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize builds the provider. Only the first call does any work; later
// calls return the same result.
func (c *Client) Initialize() error {
	c.once.Do(func() {
		if c.provider != nil {
			return
		}
		c.provider, c.initErr = newProvider(c.cfg, c.endpoint, c.logger)
		if c.initErr == nil {
			c.logger.Printf("SEARCH provider=%s lang=%s region=%s", c.provider.Name(), c.cfg.Language, c.cfg.Region)
		}
	})
	return c.initErr
}

// ProviderName returns the active provider, or "" before Initialize succeeds.
func (c *Client) ProviderName() string {
	if c.Initialize() != nil {
		return ""
	}
	return c.provider.Name()
}

func newProvider(cfg Config, endpoint string, logger *log.Logger) (Provider, error) {
	name := cfg.Provider
	if name == "" {
		name = ProviderMaps
		if cfg.APIKey != "" {
			name = ProviderPlaces
		}
	}

	switch name {
	case ProviderPlaces, ProviderLegacy:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider %s requires an API key", name)
		}
		t := newTransport(name, newAPIHTTPClient(cfg.ProxyURL, cfg.Timeout), cfg, logger)
		if name == ProviderPlaces {
			return newPlacesProvider(endpoint, cfg.APIKey, t), nil
		}
		return newLegacyProvider(endpoint, cfg.APIKey, t), nil
	case ProviderMaps:
		t := newTransport(name, newFingerprintHTTPClient(cfg.ProxyURL, cfg.Timeout), cfg, logger)
		return newMapsProvider(endpoint, t), nil
	}
	return nil, fmt.Errorf("unknown provider %q", name)
}

// SearchNear returns drinking-water candidates within radiusMeters of center,
// in provider order.
func (c *Client) SearchNear(ctx context.Context, center model.Coordinate, radiusMeters float64) ([]model.CandidatePlace, error) {
	if err := center.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive", ErrInvalidRequest)
	}
	if err := c.Initialize(); err != nil {
		return nil, &SearchFailed{Op: "nearby", Provider: c.cfg.Provider, Err: err}
	}

	req := c.request(nearbyKeywords)
	req.Center = &center
	req.RadiusMeters = radiusMeters

	start := time.Now()
	candidates, err := c.provider.Nearby(ctx, req)
	if err != nil {
		c.logger.Printf("ERROR op=nearby provider=%s center=%s err=%v", c.provider.Name(), center, err)
		return nil, &SearchFailed{Op: "nearby", Provider: c.provider.Name(), Err: err}
	}
	candidates = sanitize(candidates)
	c.logger.Printf("SEARCH op=nearby provider=%s center=%s radius=%.0f results=%d elapsed=%s",
		c.provider.Name(), center, radiusMeters, len(candidates), time.Since(start).Truncate(time.Millisecond))
	return candidates, nil
}

// SearchByText runs a free-text search, biased towards bias when given.
func (c *Client) SearchByText(ctx context.Context, query string, bias *model.Coordinate) ([]model.CandidatePlace, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidRequest)
	}
	if bias != nil {
		if err := bias.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	if err := c.Initialize(); err != nil {
		return nil, &SearchFailed{Op: "text", Provider: c.cfg.Provider, Err: err}
	}

	req := c.request(query + textSuffix)
	if bias != nil {
		b := *bias
		req.Center = &b
		req.RadiusMeters = c.cfg.TextBiasRadiusMeters
	}

	start := time.Now()
	candidates, err := c.provider.Text(ctx, req)
	if err != nil {
		c.logger.Printf("ERROR op=text provider=%s query=%q err=%v", c.provider.Name(), query, err)
		return nil, &SearchFailed{Op: "text", Provider: c.provider.Name(), Err: err}
	}
	candidates = sanitize(candidates)
	c.logger.Printf("SEARCH op=text provider=%s query=%q results=%d elapsed=%s",
		c.provider.Name(), query, len(candidates), time.Since(start).Truncate(time.Millisecond))
	return candidates, nil
}

func (c *Client) request(query string) Request {
	return Request{
		Query:     query,
		ResultCap: c.cfg.ResultCap,
		Language:  c.cfg.Language,
		Region:    c.cfg.Region,
	}
}

// sanitize drops records the merger cannot key or place. Order is kept.
func sanitize(in []model.CandidatePlace) []model.CandidatePlace {
	out := make([]model.CandidatePlace, 0, len(in))
	for _, p := range in {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		p.Address = strings.TrimSpace(p.Address)
		if p.ID == "" {
			continue
		}
		if p.Location.Latitude == 0 && p.Location.Longitude == 0 {
			continue
		}
		if p.Location.Validate() != nil {
			continue
		}
		if p.Rating < 0 || p.Rating > 5 {
			p.Rating = 0
		}
		out = append(out, p)
	}
	return out
}

func capResults(in []model.CandidatePlace, max int) []model.CandidatePlace {
	if max > 0 && len(in) > max {
		return in[:max]
	}
	return in
}
