package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/rendis/spottet/internal/model"
)

type AppConfig struct {
	Provider string `validate:"omitempty,oneof=places legacy maps"`
	APIKey   string `validate:"required_if=Provider places,required_if=Provider legacy"`
	ProxyURL string `validate:"omitempty,url"`

	DBPath string `validate:"required"`

	Language string `validate:"required,bcp47_language_tag"`
	Region   string `validate:"required,len=2"`

	NearbyRadiusMeters   float64 `validate:"gt=0,lte=50000"`
	TextBiasRadiusMeters float64 `validate:"gt=0,lte=50000"`
	ResultCap            int     `validate:"gt=0,lte=60"`
	RequestsPerSecond    float64 `validate:"gt=0,lte=50"`

	LocateTimeout     time.Duration `validate:"gt=0"`
	ErrorDisplay      time.Duration `validate:"gt=0"`
	RefreshInterval   time.Duration `validate:"gte=1s"`
	RefreshDistanceKm float64       `validate:"gt=0"`

	// Location is the user position when one is configured. Place is a name
	// to geocode instead. Without either the locator fails and the app falls
	// back to central Stockholm.
	Location *model.Coordinate
	Place    string
}

var validate = validator.New()

// Load reads an optional .env file (or the given files), then the
// environment, applying defaults for anything unset.
func Load(files ...string) (*AppConfig, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	cfg := &AppConfig{
		Provider: os.Getenv("SPOTTET_PROVIDER"),
		APIKey:   os.Getenv("GOOGLE_MAPS_API_KEY"),
		ProxyURL: os.Getenv("SPOTTET_PROXY"),
		DBPath:   getenvDefault("SPOTTET_DB", defaultDBPath()),
		Language: getenvDefault("SPOTTET_LANG", "sv"),
		Region:   getenvDefault("SPOTTET_REGION", "se"),
		Place:    os.Getenv("SPOTTET_PLACE"),
	}

	var err error
	if cfg.NearbyRadiusMeters, err = getenvFloat("SPOTTET_RADIUS_M", 5000); err != nil {
		return nil, err
	}
	if cfg.TextBiasRadiusMeters, err = getenvFloat("SPOTTET_TEXT_RADIUS_M", 10000); err != nil {
		return nil, err
	}
	if cfg.RefreshDistanceKm, err = getenvFloat("SPOTTET_REFRESH_KM", 1.0); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond, err = getenvFloat("SPOTTET_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.ResultCap, err = getenvInt("SPOTTET_RESULT_CAP", 20); err != nil {
		return nil, err
	}
	if cfg.LocateTimeout, err = getenvDuration("SPOTTET_LOCATE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ErrorDisplay, err = getenvDuration("SPOTTET_ERROR_DISPLAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("SPOTTET_REFRESH_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}

	if cfg.Location, err = loadLocation(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct rules again, for callers that override fields
// after Load (command-line flags).
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func loadLocation() (*model.Coordinate, error) {
	latStr, lngStr := os.Getenv("SPOTTET_LAT"), os.Getenv("SPOTTET_LNG")
	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	if latStr == "" || lngStr == "" {
		return nil, fmt.Errorf("SPOTTET_LAT and SPOTTET_LNG must be set together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SPOTTET_LAT: %w", err)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SPOTTET_LNG: %w", err)
	}
	c := model.Coordinate{Latitude: lat, Longitude: lng}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Dir is the per-user directory for the database and log file.
func Dir() string {
	cfg, err := os.UserConfigDir()
	if err != nil {
		cfg = os.TempDir()
	}
	return filepath.Join(cfg, "spottet")
}

func defaultDBPath() string {
	return filepath.Join(Dir(), "fountains.db")
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
