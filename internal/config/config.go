package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"missiontl/internal/model"
	"missiontl/internal/resource"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is the source name bands refer to.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// JWTConfig enables bearer-token auth on the POST endpoints.
type JWTConfig struct {
	// Secret is the HS256 signing key.
	Secret string `yaml:"secret" json:"-"`
	// Issuer, when set, must match the token's iss claim.
	Issuer string `yaml:"issuer,omitempty" json:"issuer,omitempty"`
}

// AuthConfig groups the optional HTTP authentication layers.
type AuthConfig struct {
	// Basic, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	Basic *BasicAuthConfig `yaml:"basic,omitempty" json:"basic,omitempty"`
	JWT   *JWTConfig       `yaml:"jwt,omitempty" json:"jwt,omitempty"`
}

// MySQLConfig points the mysql interval source at a database.
type MySQLConfig struct {
	DSN string `yaml:"dsn" json:"-"`
}

// RedisConfig selects the redis render cache. Without it renders are cached
// in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password,omitempty" json:"-"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// AMQPConfig selects the AMQP event publisher. Without it events are logged.
type AMQPConfig struct {
	URL      string `yaml:"url" json:"-"`
	Exchange string `yaml:"exchange" json:"exchange"`
}

// SnapshotConfig controls the headless-browser PNG capture.
type SnapshotConfig struct {
	// Enabled takes a capture after every scheduled refresh.
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	// URL defaults to the local listen address.
	URL     string `yaml:"url,omitempty" json:"url,omitempty"`
	Timeout int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// ViewConfig describes the data range and the initial visible window.
//
// Times accept RFC3339 ("2024-05-01T00:00:00Z"), Unix seconds, or a Go
// duration relative to now ("-24h", "72h").
type ViewConfig struct {
	Start     string `yaml:"start" json:"start"`
	End       string `yaml:"end" json:"end"`
	ViewStart string `yaml:"view_start,omitempty" json:"view_start,omitempty"`
	ViewEnd   string `yaml:"view_end,omitempty" json:"view_end,omitempty"`

	// Width is the page width in pixels, LabelWidth the left margin that
	// holds band labels.
	Width        float64 `yaml:"width" json:"width"`
	LabelWidth   float64 `yaml:"label_width" json:"label_width"`
	MinTickWidth float64 `yaml:"min_tick_width" json:"min_tick_width"`

	ClampPan       bool  `yaml:"clamp_pan" json:"clamp_pan"`
	ShowNow        bool  `yaml:"show_now" json:"show_now"`
	SnapSeconds    int64 `yaml:"snap" json:"snap"`
	TooltipDelayMS int   `yaml:"tooltip_delay_ms" json:"tooltip_delay_ms"`

	GuideTimes []string `yaml:"guide_times,omitempty" json:"guide_times,omitempty"`
}

// ActivityConfig holds the activity band options.
type ActivityConfig struct {
	Layout     string  `yaml:"layout,omitempty" json:"layout,omitempty"`
	Style      string  `yaml:"style,omitempty" json:"style,omitempty"`
	RowHeight  float64 `yaml:"row_height,omitempty" json:"row_height,omitempty"`
	AutoHeight bool    `yaml:"auto_height,omitempty" json:"auto_height,omitempty"`
	Draggable  bool    `yaml:"draggable,omitempty" json:"draggable,omitempty"`
	Droppable  bool    `yaml:"droppable,omitempty" json:"droppable,omitempty"`
}

// ResourceConfig holds the resource band options.
type ResourceConfig struct {
	MinLimit      *float64  `yaml:"min_limit,omitempty" json:"min_limit,omitempty"`
	MaxLimit      *float64  `yaml:"max_limit,omitempty" json:"max_limit,omitempty"`
	DefaultValue  *float64  `yaml:"default_value,omitempty" json:"default_value,omitempty"`
	AutoScale     string    `yaml:"auto_scale,omitempty" json:"auto_scale,omitempty"`
	Interpolation string    `yaml:"interpolation,omitempty" json:"interpolation,omitempty"`
	Fill          *bool     `yaml:"fill,omitempty" json:"fill,omitempty"`
	TickValues    []float64 `yaml:"tick_values,omitempty" json:"tick_values,omitempty"`
	LogTicks      bool      `yaml:"log_ticks,omitempty" json:"log_ticks,omitempty"`
	Unit          string    `yaml:"unit,omitempty" json:"unit,omitempty"`
}

// StateConfig holds the state band options.
type StateConfig struct {
	Interpolate bool `yaml:"interpolate,omitempty" json:"interpolate,omitempty"`
}

// BandConfig declares one band.
type BandConfig struct {
	ID     string  `yaml:"id" json:"id"`
	Kind   string  `yaml:"kind" json:"kind"`
	Label  string  `yaml:"label,omitempty" json:"label,omitempty"`
	Height float64 `yaml:"height,omitempty" json:"height,omitempty"`

	// Source names the interval provider: "static", "mysql", or the id of
	// an ICS subscription. Empty means no data.
	Source string `yaml:"source,omitempty" json:"source,omitempty"`

	// Children and Members refer to other bands by ID.
	Children []string `yaml:"children,omitempty" json:"children,omitempty"`
	Members  []string `yaml:"members,omitempty" json:"members,omitempty"`

	Activity ActivityConfig `yaml:"activity,omitempty" json:"activity,omitempty"`
	Resource ResourceConfig `yaml:"resource,omitempty" json:"resource,omitempty"`
	State    StateConfig    `yaml:"state,omitempty" json:"state,omitempty"`

	// Intervals and Reservations are the data of the static source.
	Intervals    []*model.DrawableInterval `yaml:"intervals,omitempty" json:"intervals,omitempty"`
	Reservations []resource.Reservation    `yaml:"reservations,omitempty" json:"reservations,omitempty"`

	// Background intervals are annotated highlights painted under the
	// band's intervals; double clicking one shows its annotation.
	// Foreground intervals are highlights painted over them.
	Background []*model.DrawableInterval `yaml:"background,omitempty" json:"background,omitempty"`
	Foreground []*model.DrawableInterval `yaml:"foreground,omitempty" json:"foreground,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for tick labels (e.g. "UTC").
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic source reloads.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds the ICS fetch cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	View  ViewConfig   `yaml:"view" json:"view"`
	Bands []BandConfig `yaml:"bands" json:"bands"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	MySQL *MySQLConfig `yaml:"mysql,omitempty" json:"mysql,omitempty"`
	Redis *RedisConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
	AMQP  *AMQPConfig  `yaml:"amqp,omitempty" json:"amqp,omitempty"`

	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`
}

// DefaultConfig returns an in-memory default configuration: a two-day data
// range around now with a demo activity band.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "UTC",
		LogLevel:    "info",
		RefreshCron: "*/15 * * * *",
		CacheDir:    "cache",
		View: ViewConfig{
			Start:          "-24h",
			End:            "24h",
			Width:          1200,
			LabelWidth:     120,
			MinTickWidth:   100,
			ShowNow:        true,
			SnapSeconds:    300,
			TooltipDelayMS: 250,
		},
		Bands: []BandConfig{
			{ID: "activities", Kind: "activity", Label: "Activities", Source: "static"},
		},
		ICS: []ICSConfig{},
		Snapshot: SnapshotConfig{
			Path:    "snapshot.png",
			Timeout: 30,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch c.LogLevel {
	case "debug", "info", "error":
	default:
		c.LogLevel = def.LogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.View.Start == "" {
		c.View.Start = def.View.Start
	}
	if c.View.End == "" {
		c.View.End = def.View.End
	}
	if c.View.Width <= 0 {
		c.View.Width = def.View.Width
	}
	if c.View.LabelWidth < 0 || c.View.LabelWidth >= c.View.Width {
		c.View.LabelWidth = def.View.LabelWidth
	}
	if c.View.MinTickWidth <= 0 {
		c.View.MinTickWidth = def.View.MinTickWidth
	}
	if c.View.SnapSeconds < 0 {
		c.View.SnapSeconds = 0
	}
	if c.View.TooltipDelayMS < 0 {
		c.View.TooltipDelayMS = 0
	}
	for i := range c.Bands {
		if c.Bands[i].Kind == "" {
			c.Bands[i].Kind = "activity"
		}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.Redis != nil && c.Redis.Prefix == "" {
		c.Redis.Prefix = "missiontl:"
	}
	if c.AMQP != nil && c.AMQP.Exchange == "" {
		c.AMQP.Exchange = "missiontl.events"
	}
	if c.Snapshot.Path == "" {
		c.Snapshot.Path = def.Snapshot.Path
	}
	if c.Snapshot.Timeout <= 0 {
		c.Snapshot.Timeout = def.Snapshot.Timeout
	}
}

// Validate reports configuration errors that Normalize cannot repair.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for _, b := range c.Bands {
		if b.ID == "" {
			return errors.New("config: band without id")
		}
		if seen[b.ID] {
			return fmt.Errorf("config: duplicate band id %q", b.ID)
		}
		seen[b.ID] = true
		switch b.Kind {
		case "activity", "resource", "state", "composite":
		default:
			return fmt.Errorf("config: band %q: unknown kind %q", b.ID, b.Kind)
		}
	}
	for _, b := range c.Bands {
		for _, ref := range append(append([]string(nil), b.Children...), b.Members...) {
			if !seen[ref] {
				return fmt.Errorf("config: band %q refers to unknown band %q", b.ID, ref)
			}
		}
	}
	return nil
}

// Band returns the band declared with id.
func (c *Config) Band(id string) (BandConfig, bool) {
	for _, b := range c.Bands {
		if b.ID == id {
			return b, true
		}
	}
	return BandConfig{}, false
}

// ParseTime resolves a config time relative to now.
func ParseTime(s string, now time.Time) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("config: empty time")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(d).Unix(), nil
	}
	return 0, fmt.Errorf("config: cannot parse time %q", s)
}

// Window resolves the data range and the initial view. A missing view
// defaults to the data range.
func (v ViewConfig) Window(now time.Time) (start, end, viewStart, viewEnd int64, err error) {
	if start, err = ParseTime(v.Start, now); err != nil {
		return
	}
	if end, err = ParseTime(v.End, now); err != nil {
		return
	}
	if end <= start {
		err = fmt.Errorf("config: view end %q is not after start %q", v.End, v.Start)
		return
	}
	viewStart, viewEnd = start, end
	if v.ViewStart != "" {
		if viewStart, err = ParseTime(v.ViewStart, now); err != nil {
			return
		}
	}
	if v.ViewEnd != "" {
		if viewEnd, err = ParseTime(v.ViewEnd, now); err != nil {
			return
		}
	}
	if viewEnd <= viewStart {
		err = errors.New("config: empty initial view")
	}
	return
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate band references
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnv overrides secrets and endpoints from the environment. getenv is
// usually os.Getenv after godotenv has loaded the .env file.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("MISSIONTL_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := getenv("MISSIONTL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("MISSIONTL_MYSQL_DSN"); v != "" {
		if c.MySQL == nil {
			c.MySQL = &MySQLConfig{}
		}
		c.MySQL.DSN = v
	}
	if v := getenv("MISSIONTL_REDIS_ADDR"); v != "" {
		if c.Redis == nil {
			c.Redis = &RedisConfig{}
		}
		c.Redis.Addr = v
	}
	if v := getenv("MISSIONTL_REDIS_PASSWORD"); v != "" && c.Redis != nil {
		c.Redis.Password = v
	}
	if v := getenv("MISSIONTL_AMQP_URL"); v != "" {
		if c.AMQP == nil {
			c.AMQP = &AMQPConfig{}
		}
		c.AMQP.URL = v
	}
	if v := getenv("MISSIONTL_JWT_SECRET"); v != "" {
		if c.Auth.JWT == nil {
			c.Auth.JWT = &JWTConfig{}
		}
		c.Auth.JWT.Secret = v
	}
	c.Normalize()
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".missiontl-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
