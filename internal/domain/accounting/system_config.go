package accounting

import (
	"fmt"
	"strconv"
	"time"
)

// Well-known setting keys shared by all providers
const (
	SettingConflictResolution = "conflict_resolution"
	SettingTimeoutSeconds     = "timeout_seconds"
	SettingCustomHeaders      = "custom_headers"
	SettingRateLimitRPS       = "rate_limit_rps"
	SettingBaseURL            = "base_url"
)

// AccountingSystemConfig describes one registered external accounting system
type AccountingSystemConfig struct {
	ID           string
	Name         string
	ProviderType ProviderType
	Credentials  map[string]string
	Settings     map[string]any
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the config carries the minimum needed to build an adapter
func (c *AccountingSystemConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: system id is required", ErrInvalidSystemConfig)
	}
	if c.ProviderType == "" {
		return fmt.Errorf("%w: provider type is required", ErrInvalidSystemConfig)
	}
	return nil
}

// Credential returns a credential value or an empty string
func (c *AccountingSystemConfig) Credential(key string) string {
	if c.Credentials == nil {
		return ""
	}
	return c.Credentials[key]
}

// SettingString returns a string setting or def when absent
func (c *AccountingSystemConfig) SettingString(key, def string) string {
	v, ok := c.Settings[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

// SettingInt returns an integer setting or def when absent or malformed.
// JSON-decoded settings carry numbers as float64.
func (c *AccountingSystemConfig) SettingInt(key string, def int) int {
	f, ok := c.settingNumber(key)
	if !ok {
		return def
	}
	return int(f)
}

// SettingFloat returns a float setting or def when absent or malformed
func (c *AccountingSystemConfig) SettingFloat(key string, def float64) float64 {
	f, ok := c.settingNumber(key)
	if !ok {
		return def
	}
	return f
}

func (c *AccountingSystemConfig) settingNumber(key string) (float64, bool) {
	switch n := c.Settings[key].(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// SettingStringMap returns a nested map setting with string values
func (c *AccountingSystemConfig) SettingStringMap(key string) map[string]string {
	out := make(map[string]string)
	switch m := c.Settings[key].(type) {
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}

// ConflictStrategy returns the configured conflict strategy or def
func (c *AccountingSystemConfig) ConflictStrategy(def ConflictStrategy) ConflictStrategy {
	raw := c.SettingString(SettingConflictResolution, "")
	if raw == "" {
		return def
	}
	return ParseConflictStrategy(raw)
}

// Timeout returns the per-call provider timeout (default 30s)
func (c *AccountingSystemConfig) Timeout() time.Duration {
	secs := c.SettingInt(SettingTimeoutSeconds, 30)
	if secs <= 0 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}
