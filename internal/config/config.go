// Package config holds the run configuration. Values come from defaults, an
// optional YAML file, TILEPULL_* environment variables and finally CLI
// flags, in that order of increasing precedence. Everything is validated
// once before any download starts.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"tilepull/internal/slippy"
)

// Config is the full set of run options.
type Config struct {
	// URL is a preset name or a template with {s}/{z}/{x}/{y}/{r}.
	URL string `yaml:"url" env:"TILEPULL_URL" env-default:"dark_all"`

	// Zoom levels are pointers so an explicit 0 is distinguishable from
	// the flag being absent.
	MinZoom *int `yaml:"min_zoom" env:"TILEPULL_MIN_ZOOM"`
	MaxZoom *int `yaml:"max_zoom" env:"TILEPULL_MAX_ZOOM"`

	// Geographic mode. All four must be set together.
	MinLat *float64 `yaml:"min_lat" env:"TILEPULL_MIN_LAT"`
	MinLon *float64 `yaml:"min_lon" env:"TILEPULL_MIN_LON"`
	MaxLat *float64 `yaml:"max_lat" env:"TILEPULL_MAX_LAT"`
	MaxLon *float64 `yaml:"max_lon" env:"TILEPULL_MAX_LON"`

	// Tile-range mode, mutually exclusive with the geographic mode.
	MinX *int `yaml:"min_x" env:"TILEPULL_MIN_X"`
	MaxX *int `yaml:"max_x" env:"TILEPULL_MAX_X"`
	MinY *int `yaml:"min_y" env:"TILEPULL_MIN_Y"`
	MaxY *int `yaml:"max_y" env:"TILEPULL_MAX_Y"`

	Output  string        `yaml:"output" env:"TILEPULL_OUTPUT"`
	Workers int           `yaml:"workers" env:"TILEPULL_WORKERS" env-default:"10"`
	Retries int           `yaml:"retries" env:"TILEPULL_RETRIES" env-default:"3"`
	Timeout time.Duration `yaml:"timeout" env:"TILEPULL_TIMEOUT" env-default:"10s"`

	UserAgent string `yaml:"user_agent" env:"TILEPULL_USER_AGENT"`
	Proxy     string `yaml:"proxy" env:"TILEPULL_PROXY"`

	// Retina requests @2x tile variants where the template has {r}.
	Retina bool `yaml:"retina" env:"TILEPULL_RETINA"`

	Quiet      bool `yaml:"quiet" env:"TILEPULL_QUIET"`
	NoProgress bool `yaml:"no_progress" env:"TILEPULL_NO_PROGRESS"`
}

// Load reads configuration from an optional YAML file plus the environment.
// An empty path skips the file and reads the environment only.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// DefaultOutput returns the timestamped directory used when --output is
// omitted.
func DefaultOutput(now time.Time) string {
	return "tiles_download_" + now.Format("20060102_150405")
}

// HasBounds reports whether all geographic flags are set.
func (c *Config) HasBounds() bool {
	return c.MinLat != nil && c.MinLon != nil && c.MaxLat != nil && c.MaxLon != nil
}

// HasTileRange reports whether all tile X/Y flags are set.
func (c *Config) HasTileRange() bool {
	return c.MinX != nil && c.MaxX != nil && c.MinY != nil && c.MaxY != nil
}

// Bounds returns the geographic bounding box. Valid only when HasBounds.
func (c *Config) Bounds() slippy.BoundingBox {
	return slippy.BoundingBox{
		South: *c.MinLat,
		West:  *c.MinLon,
		North: *c.MaxLat,
		East:  *c.MaxLon,
	}
}

// Zooms returns the zoom range. Valid only when both zoom levels are set.
func (c *Config) Zooms() slippy.ZoomRange {
	return slippy.ZoomRange{Min: *c.MinZoom, Max: *c.MaxZoom}
}

// Validate checks the whole configuration. Any error here is fatal and
// reported before the first request goes out.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("tile URL or preset is required")
	}
	if c.MinZoom == nil || c.MaxZoom == nil {
		return fmt.Errorf("min and max zoom are required")
	}
	if err := c.Zooms().Validate(); err != nil {
		return err
	}

	anyBounds := c.MinLat != nil || c.MinLon != nil || c.MaxLat != nil || c.MaxLon != nil
	anyTiles := c.MinX != nil || c.MaxX != nil || c.MinY != nil || c.MaxY != nil

	switch {
	case anyBounds && anyTiles:
		return fmt.Errorf("geographic bounds and tile X/Y range are mutually exclusive")
	case anyBounds && !c.HasBounds():
		return fmt.Errorf("all four of min-lat, min-lon, max-lat, max-lon are required")
	case anyTiles && !c.HasTileRange():
		return fmt.Errorf("all four of min-x, max-x, min-y, max-y are required")
	case !anyBounds && !anyTiles:
		return fmt.Errorf("either geographic bounds or a tile X/Y range is required")
	}

	if c.HasBounds() {
		if err := c.Bounds().Validate(); err != nil {
			return err
		}
	} else {
		for _, z := range c.Zooms().Levels() {
			r := slippy.TileRange{Zoom: z, MinX: *c.MinX, MaxX: *c.MaxX, MinY: *c.MinY, MaxY: *c.MaxY}
			if err := r.Validate(); err != nil {
				return err
			}
		}
	}

	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must be non-negative, got %d", c.Retries)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
