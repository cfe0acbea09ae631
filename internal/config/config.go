// Package config loads application settings from defaults, a config file,
// CVS_COMPASS_* environment variables and command-line flags, in that order
// of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	apperrors "github.com/Ch00k/cvs-compass/internal/errors"
	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/location"
	"github.com/Ch00k/cvs-compass/internal/logging"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "CVS_COMPASS"

// Provider names
const (
	ProviderFixed  = "fixed"
	ProviderIP     = "ip"
	ProviderStream = "stream"
	ProviderTrack  = "track"
)

// Search source names
const (
	SourceKakao   = "kakao"
	SourceCatalog = "catalog"
	SourceElastic = "elastic"
)

// UI modes
const (
	UIAuto  = "auto"
	UITUI   = "tui"
	UIPlain = "plain"
)

var (
	providers = []string{ProviderFixed, ProviderIP, ProviderStream, ProviderTrack}
	sources   = []string{SourceKakao, SourceCatalog, SourceElastic}
	uiModes   = []string{UIAuto, UITUI, UIPlain}
)

// Config holds application configuration
type Config struct {
	Location LocationConfig `mapstructure:"location"`
	Search   SearchConfig   `mapstructure:"search"`
	UI       UIConfig       `mapstructure:"ui"`
	Log      LogConfig      `mapstructure:"log"`
	Probe    ProbeConfig    `mapstructure:"probe"`
}

// LocationConfig selects and tunes the location provider
type LocationConfig struct {
	Provider         string        `mapstructure:"provider"`
	Authorization    string        `mapstructure:"authorization"`
	Interval         time.Duration `mapstructure:"interval"`
	Latitude         float64       `mapstructure:"latitude"`
	Longitude        float64       `mapstructure:"longitude"`
	URL              string        `mapstructure:"url"`
	StreamURL        string        `mapstructure:"stream_url"`
	TrackFile        string        `mapstructure:"track_file"`
	TrackPoll        bool          `mapstructure:"track_poll"`
	CenterOnFirstFix bool          `mapstructure:"center_on_first_fix"`
}

// SearchConfig selects the store search backends
type SearchConfig struct {
	Sources []string      `mapstructure:"sources"`
	Radius  int           `mapstructure:"radius"`
	Limit   int           `mapstructure:"limit"`
	Brand   string        `mapstructure:"brand"`
	Timeout time.Duration `mapstructure:"timeout"`
	Kakao   KakaoConfig   `mapstructure:"kakao"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Elastic ElasticConfig `mapstructure:"elastic"`
}

// KakaoConfig holds Kakao Local API settings
type KakaoConfig struct {
	APIKey string `mapstructure:"api_key"`
	URL    string `mapstructure:"url"`
}

// CatalogConfig holds local store file settings
type CatalogConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// ElasticConfig holds Elasticsearch settings
type ElasticConfig struct {
	URL   string `mapstructure:"url"`
	Index string `mapstructure:"index"`
}

// UIConfig holds presentation settings
type UIConfig struct {
	Mode string `mapstructure:"mode"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ProbeConfig tunes the doctor command
type ProbeConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Workers int           `mapstructure:"workers"`
	IPv6    bool          `mapstructure:"ipv6"`
}

// SetDefaults registers every key with its default value. Keys without a
// default are invisible to environment overrides.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("location.provider", ProviderFixed)
	v.SetDefault("location.authorization", location.AuthorizedWhenInUse.String())
	v.SetDefault("location.interval", "30s")
	v.SetDefault("location.latitude", location.DefaultFixedLocation.Latitude)
	v.SetDefault("location.longitude", location.DefaultFixedLocation.Longitude)
	v.SetDefault("location.url", "https://ipapi.co/json/")
	v.SetDefault("location.stream_url", "")
	v.SetDefault("location.track_file", "")
	v.SetDefault("location.track_poll", false)
	v.SetDefault("location.center_on_first_fix", true)

	v.SetDefault("search.sources", []string{SourceCatalog})
	v.SetDefault("search.radius", 1000)
	v.SetDefault("search.limit", 15)
	v.SetDefault("search.brand", "")
	v.SetDefault("search.timeout", "10s")
	v.SetDefault("search.kakao.api_key", "")
	v.SetDefault("search.kakao.url", "https://dapi.kakao.com/v2/local/search/category.json")
	v.SetDefault("search.catalog.path", "")
	v.SetDefault("search.catalog.watch", true)
	v.SetDefault("search.elastic.url", "http://localhost:9200")
	v.SetDefault("search.elastic.index", "stores")

	v.SetDefault("ui.mode", UIAuto)

	v.SetDefault("log.level", logging.LogLevelError.String())
	v.SetDefault("log.format", string(logging.FormatText))
	v.SetDefault("log.file", "")

	v.SetDefault("probe.timeout", "1s")
	v.SetDefault("probe.workers", 4)
	v.SetDefault("probe.ipv6", false)
}

// DefaultPath returns ~/.config/cvs-compass/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "cvs-compass", "config.yaml")
}

// NewViper creates a viper instance with defaults and environment overrides,
// and reads the config file if there is one. A file named explicitly through
// CVS_COMPASS_CONFIG must exist.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return v, nil
	}

	path := DefaultPath()
	if path == "" {
		return v, nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return v, nil
}

// flagKeys maps command-line flags to config keys
var flagKeys = map[string]string{
	"provider":      "location.provider",
	"authorization": "location.authorization",
	"interval":      "location.interval",
	"lat":           "location.latitude",
	"lon":           "location.longitude",
	"stream-url":    "location.stream_url",
	"track-file":    "location.track_file",
	"source":        "search.sources",
	"radius":        "search.radius",
	"limit":         "search.limit",
	"brand":         "search.brand",
	"catalog":       "search.catalog.path",
	"kakao-key":     "search.kakao.api_key",
	"elastic-url":   "search.elastic.url",
	"ui":            "ui.mode",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"log-file":      "log.file",
	"probe-timeout": "probe.timeout",
	"workers":       "probe.workers",
	"ipv6":          "probe.ipv6",
}

// RegisterFlags adds the configuration flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("provider", ProviderFixed, "location provider ("+strings.Join(providers, ", ")+")")
	fs.String("authorization", location.AuthorizedWhenInUse.String(), "authorization status reported by fixed and ip providers")
	fs.Duration("interval", 30*time.Second, "polling interval of the ip provider")
	fs.Float64("lat", location.DefaultFixedLocation.Latitude, "latitude for the fixed provider")
	fs.Float64("lon", location.DefaultFixedLocation.Longitude, "longitude for the fixed provider")
	fs.String("stream-url", "", "websocket URL for the stream provider")
	fs.String("track-file", "", "track file for the track provider")
	fs.StringSlice("source", []string{SourceCatalog}, "store search sources ("+strings.Join(sources, ", ")+")")
	fs.Int("radius", 1000, "search radius in metres (1-20000)")
	fs.Int("limit", 15, "maximum number of stores listed (1-45)")
	fs.String("brand", "", "only list stores of this brand")
	fs.String("catalog", "", "store catalog file (YAML or JSON)")
	fs.String("kakao-key", "", "Kakao REST API key")
	fs.String("elastic-url", "http://localhost:9200", "Elasticsearch URL")
	fs.String("ui", UIAuto, "presentation ("+strings.Join(uiModes, ", ")+")")
	fs.StringP("log-level", "l", logging.LogLevelError.String(), "log level (debug, info, warning, error)")
	fs.String("log-format", string(logging.FormatText), "log format (text, json)")
	fs.String("log-file", "", "append logs to this file")
}

// RegisterProbeFlags adds the flags of the doctor command to fs
func RegisterProbeFlags(fs *pflag.FlagSet) {
	fs.Duration("probe-timeout", time.Second, "echo reply timeout (100ms-5s)")
	fs.IntP("workers", "w", 4, "number of concurrent probes (1-200)")
	fs.BoolP("ipv6", "6", false, "probe over IPv6")
}

// BindFlags binds the flags registered by RegisterFlags. Only flags set on
// the command line override file and environment values.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load unmarshals and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "failed to decode configuration")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every setting and returns the first problem found
func (c *Config) Validate() error {
	if !slices.Contains(providers, c.Location.Provider) {
		return apperrors.ConfigInvalid("location.provider", fmt.Sprintf("must be one of %s", strings.Join(providers, ", ")))
	}
	if _, err := location.ParseAuthorizationStatus(c.Location.Authorization); err != nil {
		return apperrors.ConfigInvalid("location.authorization", err.Error())
	}
	if c.Location.Interval < time.Second || c.Location.Interval > time.Hour {
		return apperrors.ConfigInvalid("location.interval", "must be between 1s and 1h")
	}
	if err := c.FixedLocation().Validate(); err != nil {
		return apperrors.ConfigInvalid("location.latitude", err.Error())
	}
	if c.Location.Provider == ProviderStream && c.Location.StreamURL == "" {
		return apperrors.ConfigInvalid("location.stream_url", "required by the stream provider")
	}
	if c.Location.Provider == ProviderTrack && c.Location.TrackFile == "" {
		return apperrors.ConfigInvalid("location.track_file", "required by the track provider")
	}

	if len(c.Search.Sources) == 0 {
		return apperrors.ConfigInvalid("search.sources", "at least one source is required")
	}
	for _, s := range c.Search.Sources {
		if !slices.Contains(sources, s) {
			return apperrors.ConfigInvalid("search.sources", fmt.Sprintf("unknown source %q, must be one of %s", s, strings.Join(sources, ", ")))
		}
	}
	if c.Search.Radius < 1 || c.Search.Radius > 20000 {
		return apperrors.ConfigInvalid("search.radius", "must be between 1 and 20000")
	}
	if c.Search.Limit < 1 || c.Search.Limit > 45 {
		return apperrors.ConfigInvalid("search.limit", "must be between 1 and 45")
	}
	if c.Search.Timeout <= 0 {
		return apperrors.ConfigInvalid("search.timeout", "must be positive")
	}
	if c.HasSource(SourceKakao) && c.Search.Kakao.APIKey == "" {
		return apperrors.ConfigInvalid("search.kakao.api_key", "required by the kakao source")
	}
	if c.HasSource(SourceCatalog) && c.Search.Catalog.Path == "" {
		return apperrors.ConfigInvalid("search.catalog.path", "required by the catalog source")
	}
	if c.HasSource(SourceElastic) && c.Search.Elastic.URL == "" {
		return apperrors.ConfigInvalid("search.elastic.url", "required by the elastic source")
	}

	if !slices.Contains(uiModes, c.UI.Mode) {
		return apperrors.ConfigInvalid("ui.mode", fmt.Sprintf("must be one of %s", strings.Join(uiModes, ", ")))
	}
	if _, err := logging.ParseLogLevel(c.Log.Level); err != nil {
		return apperrors.ConfigInvalid("log.level", err.Error())
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return apperrors.ConfigInvalid("log.format", err.Error())
	}

	if c.Probe.Timeout < 100*time.Millisecond || c.Probe.Timeout > 5*time.Second {
		return apperrors.ConfigInvalid("probe.timeout", "must be between 100ms and 5s")
	}
	if c.Probe.Workers < 1 || c.Probe.Workers > 200 {
		return apperrors.ConfigInvalid("probe.workers", "must be between 1 and 200")
	}
	return nil
}

// HasSource reports whether name is an enabled search source
func (c *Config) HasSource(name string) bool {
	return slices.Contains(c.Search.Sources, name)
}

// FixedLocation returns the coordinate of the fixed provider
func (c *Config) FixedLocation() geo.Location {
	return geo.Location{Latitude: c.Location.Latitude, Longitude: c.Location.Longitude}
}

// AuthorizationStatus returns the configured status. Validate has checked it.
func (c *Config) AuthorizationStatus() location.AuthorizationStatus {
	status, _ := location.ParseAuthorizationStatus(c.Location.Authorization)
	return status
}

// LogLevel returns the configured level. Validate has checked it.
func (c *Config) LogLevel() logging.LogLevel {
	level, _ := logging.ParseLogLevel(c.Log.Level)
	return level
}

// LogFormat returns the configured format. Validate has checked it.
func (c *Config) LogFormat() logging.Format {
	format, _ := logging.ParseFormat(c.Log.Format)
	return format
}

// Endpoints lists the network endpoints the configuration uses, by name
func (c *Config) Endpoints() map[string]string {
	endpoints := map[string]string{}
	switch c.Location.Provider {
	case ProviderIP:
		endpoints["location"] = c.Location.URL
	case ProviderStream:
		endpoints["location"] = c.Location.StreamURL
	}
	if c.HasSource(SourceKakao) {
		endpoints[SourceKakao] = c.Search.Kakao.URL
	}
	if c.HasSource(SourceElastic) {
		endpoints[SourceElastic] = c.Search.Elastic.URL
	}
	return endpoints
}
