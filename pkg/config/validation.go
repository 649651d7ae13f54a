package config

import (
	"fmt"
	"strings"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/text"
)

// validate validates the configuration
func validate(cfg *Config) error {
	cs := strings.TrimSpace(cfg.Gateway.Callsign)
	if cs == "" {
		return fmt.Errorf("gateway.callsign is required")
	}
	if len(cs) > dstar.LongCallsignLength-1 {
		return fmt.Errorf("gateway.callsign %q is longer than %d characters", cs, dstar.LongCallsignLength-1)
	}
	if cfg.Gateway.TickMS <= 0 {
		return fmt.Errorf("gateway.tick_ms must be positive")
	}
	if cfg.Gateway.MaxRepeaters <= 0 {
		return fmt.Errorf("gateway.max_repeaters must be positive")
	}
	if !text.IsSupported(cfg.Gateway.Language) {
		return fmt.Errorf("gateway.language %q is not supported", cfg.Gateway.Language)
	}

	if len(cfg.Repeaters) > cfg.Gateway.MaxRepeaters {
		return fmt.Errorf("%d repeaters configured but gateway.max_repeaters is %d", len(cfg.Repeaters), cfg.Gateway.MaxRepeaters)
	}

	seen := make(map[string]bool)
	for i, rpt := range cfg.Repeaters {
		if err := validateRepeater(rpt); err != nil {
			return fmt.Errorf("repeater %d: %w", i, err)
		}
		key := dstar.RepeaterCallsign(rpt.Callsign, rpt.Band)
		if seen[key] {
			return fmt.Errorf("repeater %d: %s is configured twice", i, strings.TrimSpace(key))
		}
		seen[key] = true
	}

	if cfg.Restrict.Watch && cfg.Restrict.File == "" {
		// Nothing to watch
		cfg.Restrict.Watch = false
	}

	if cfg.Hosts.Enabled {
		if cfg.Hosts.DExtraURL == "" && cfg.Hosts.DPlusURL == "" && cfg.Hosts.DCSURL == "" {
			return fmt.Errorf("hosts: at least one url is required when hosts is enabled")
		}
		if cfg.Hosts.SyncHours <= 0 {
			return fmt.Errorf("hosts.sync_hours must be positive")
		}
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if cfg.Database.RetentionDays < 0 {
		return fmt.Errorf("database.retention_days cannot be negative")
	}

	if cfg.Web.Enabled {
		if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
			return fmt.Errorf("web.port must be between 1 and 65535")
		}
		if cfg.Web.AuthRequired && (cfg.Web.Username == "" || cfg.Web.Password == "") {
			return fmt.Errorf("web.username and web.password are required when auth is enabled")
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		if cfg.Metrics.Prometheus.Port <= 0 || cfg.Metrics.Prometheus.Port > 65535 {
			return fmt.Errorf("metrics.prometheus.port must be between 1 and 65535")
		}
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}

	return nil
}

func validateRepeater(rpt RepeaterConfig) error {
	cs := strings.TrimSpace(rpt.Callsign)
	if cs == "" {
		return fmt.Errorf("callsign is required")
	}
	if len(cs) > dstar.LongCallsignLength-1 {
		return fmt.Errorf("callsign %q is too long", cs)
	}

	band := strings.ToUpper(strings.TrimSpace(rpt.Band))
	if len(band) < 1 || len(band) > 2 {
		return fmt.Errorf("band must be one module letter, or two for a DD repeater")
	}
	for _, c := range band {
		if c < 'A' || c > 'Z' {
			return fmt.Errorf("band %q must be letters", rpt.Band)
		}
	}

	if rpt.Port < 0 || rpt.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}
	if _, err := dstar.ParseHardwareType(rpt.Hardware); err != nil {
		return err
	}
	if _, err := dstar.ParseReconnect(rpt.Reconnect); err != nil {
		return err
	}
	if len(rpt.Reflector) > dstar.LongCallsignLength {
		return fmt.Errorf("reflector %q is longer than %d characters", rpt.Reflector, dstar.LongCallsignLength)
	}
	if rpt.AtStartup && strings.TrimSpace(rpt.Reflector) == "" {
		return fmt.Errorf("at_startup needs a reflector")
	}

	for _, b := range []int{rpt.Band1, rpt.Band2, rpt.Band3} {
		if b < 0 || b > 255 {
			return fmt.Errorf("band bytes must be between 0 and 255")
		}
	}

	return nil
}
