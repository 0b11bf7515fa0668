package model

import "time"

// ConfigKeyAPIKey is the system_config key holding the Gemini API key.
const ConfigKeyAPIKey = "nano_api_key"

// MaskedValue replaces secret config values in API responses.  The real
// value never leaves the server once stored.
const MaskedValue = "***HIDDEN***"

// SystemConfig is a single key/value row in the `system_config` table.
//
// Fields:
//  Key       – unique configuration key.
//  Value     – configuration value (secrets are masked before responding).
//  UpdatedAt – timestamp of last update.
type SystemConfig struct {
	Key       string    // system_config.config_key
	Value     string    // system_config.config_value
	UpdatedAt time.Time // system_config.updated_at
}
