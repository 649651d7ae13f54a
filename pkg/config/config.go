package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Gateway   GatewayConfig    `mapstructure:"gateway"`
	Features  FeaturesConfig   `mapstructure:"features"`
	Repeaters []RepeaterConfig `mapstructure:"repeaters"`
	Restrict  RestrictConfig   `mapstructure:"restrict"`
	Hosts     HostsConfig      `mapstructure:"hosts"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Web       WebConfig        `mapstructure:"web"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
}

// GatewayConfig holds gateway identification
type GatewayConfig struct {
	Callsign     string `mapstructure:"callsign"`
	Address      string `mapstructure:"address"`
	Language     string `mapstructure:"language"`
	TickMS       int    `mapstructure:"tick_ms"`       // Clock resolution of the engine
	MaxRepeaters int    `mapstructure:"max_repeaters"` // Session slots
}

// FeaturesConfig switches optional gateway behaviour
type FeaturesConfig struct {
	DExtra    bool `mapstructure:"dextra"`
	DPlus     bool `mapstructure:"dplus"`
	DCS       bool `mapstructure:"dcs"`
	Info      bool `mapstructure:"info"`
	Echo      bool `mapstructure:"echo"`
	DTMF      bool `mapstructure:"dtmf"`
	Directory bool `mapstructure:"directory"` // Route via the directory service
}

// RepeaterConfig describes one repeater attached to the gateway
type RepeaterConfig struct {
	Callsign  string `mapstructure:"callsign"`
	Band      string `mapstructure:"band"` // Module letter, two letters for DD
	Address   string `mapstructure:"address"`
	Port      int    `mapstructure:"port"`
	Hardware  string `mapstructure:"hardware"` // homebrew, icom or dummy
	Reflector string `mapstructure:"reflector"`
	AtStartup bool   `mapstructure:"at_startup"`
	Reconnect string `mapstructure:"reconnect"` // never, fixed or minutes such as 30m

	Frequency    float64 `mapstructure:"frequency"`
	Offset       float64 `mapstructure:"offset"`
	Range        float64 `mapstructure:"range"` // Kilometres
	Latitude     float64 `mapstructure:"latitude"`
	Longitude    float64 `mapstructure:"longitude"`
	AGL          float64 `mapstructure:"agl"`
	Description1 string  `mapstructure:"description1"`
	Description2 string  `mapstructure:"description2"`
	URL          string  `mapstructure:"url"`

	Band1 int `mapstructure:"band1"`
	Band2 int `mapstructure:"band2"`
	Band3 int `mapstructure:"band3"`
}

// RestrictConfig holds the restricted callsign list
type RestrictConfig struct {
	File      string   `mapstructure:"file"`
	Watch     bool     `mapstructure:"watch"` // Reload the file when it changes
	Callsigns []string `mapstructure:"callsigns"`
}

// HostsConfig holds reflector host list downloads
type HostsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DExtraURL   string `mapstructure:"dextra_url"`
	DPlusURL    string `mapstructure:"dplus_url"`
	DCSURL      string `mapstructure:"dcs_url"`
	Directory   string `mapstructure:"directory"`    // Local host files loaded at startup
	SyncHours   int    `mapstructure:"sync_hours"`   // Hours between downloads
	TimeoutSecs int    `mapstructure:"timeout_secs"` // HTTP timeout
}

// DatabaseConfig holds the sqlite store
type DatabaseConfig struct {
	Path          string `mapstructure:"path"`
	Journal       bool   `mapstructure:"journal"`        // Keep header and transmission records
	RetentionDays int    `mapstructure:"retention_days"` // Zero keeps records forever
}

// WebConfig holds web dashboard configuration
type WebConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	AuthRequired bool   `mapstructure:"auth_required"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"` // strftime layout
	File       string `mapstructure:"file"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig holds Prometheus metrics configuration
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/dstar-gateway")
	}

	viper.SetEnvPrefix("DSTAR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is OK, use defaults
		} else if os.IsNotExist(err) {
			// File explicitly specified but doesn't exist - that's also OK
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("gateway.callsign", "N0CALL")
	viper.SetDefault("gateway.address", "0.0.0.0")
	viper.SetDefault("gateway.language", "english_uk")
	viper.SetDefault("gateway.tick_ms", 10)
	viper.SetDefault("gateway.max_repeaters", gateway.DefaultCapacity)

	defaults := gateway.DefaultFeatures()
	viper.SetDefault("features.dextra", defaults.DExtra)
	viper.SetDefault("features.dplus", defaults.DPlus)
	viper.SetDefault("features.dcs", defaults.DCS)
	viper.SetDefault("features.info", defaults.Info)
	viper.SetDefault("features.echo", defaults.Echo)
	viper.SetDefault("features.dtmf", defaults.DTMF)
	viper.SetDefault("features.directory", true)

	viper.SetDefault("restrict.watch", true)

	viper.SetDefault("hosts.enabled", false)
	viper.SetDefault("hosts.sync_hours", 24)
	viper.SetDefault("hosts.timeout_secs", 30)

	viper.SetDefault("database.path", "dstar-gateway.db")
	viper.SetDefault("database.journal", true)

	viper.SetDefault("web.enabled", true)
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8080)
	viper.SetDefault("web.auth_required", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.prometheus.enabled", true)
	viper.SetDefault("metrics.prometheus.port", 9090)
	viper.SetDefault("metrics.prometheus.path", "/metrics")
}

// GatewayCallsign returns the padded gateway callsign, e.g. "GB7XX  G"
func (c *Config) GatewayCallsign() string {
	return dstar.GatewayCallsign(c.Gateway.Callsign)
}

// Tick returns the engine clock interval
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Gateway.TickMS) * time.Millisecond
}

// FeatureSet converts the feature switches for the gateway core
func (c *Config) FeatureSet() gateway.Features {
	return gateway.Features{
		DExtra: c.Features.DExtra,
		DPlus:  c.Features.DPlus,
		DCS:    c.Features.DCS,
		Info:   c.Features.Info,
		Echo:   c.Features.Echo,
		DTMF:   c.Features.DTMF,
	}
}

// Session converts a repeater entry into a session configuration. The
// transport is left for the caller to attach.
func (r RepeaterConfig) Session() (gateway.SessionConfig, error) {
	hw, err := dstar.ParseHardwareType(r.Hardware)
	if err != nil {
		return gateway.SessionConfig{}, err
	}
	rec, err := dstar.ParseReconnect(r.Reconnect)
	if err != nil {
		return gateway.SessionConfig{}, err
	}

	return gateway.SessionConfig{
		Callsign:     r.Callsign,
		Band:         r.Band,
		Address:      r.Address,
		Port:         r.Port,
		Hardware:     hw,
		Reflector:    r.Reflector,
		AtStartup:    r.AtStartup,
		Reconnect:    rec,
		Frequency:    r.Frequency,
		Offset:       r.Offset,
		Range:        r.Range,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		AGL:          r.AGL,
		Description1: r.Description1,
		Description2: r.Description2,
		URL:          r.URL,
		Band1:        byte(r.Band1),
		Band2:        byte(r.Band2),
		Band3:        byte(r.Band3),
	}, nil
}
