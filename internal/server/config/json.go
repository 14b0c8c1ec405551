package config

import (
	"encoding/json"
	"os"

	"github.com/threelizards/safe-variables/internal/flagx"
	"github.com/threelizards/safe-variables/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which
// allows parsing both string values such as "15m" and integer
// nanoseconds. All fields are pointers so a file that sets only some
// keys overlays exactly those and leaves the rest of the running
// Config alone.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its present fields are
// copied into the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr           *string         `json:"endpoint_addr"`
	DatabaseDSN            *string         `json:"database_dsn"`
	SecretKey              *string         `json:"secret_key"`
	EncryptionKey          *string         `json:"encryption_key"`
	SessionLifetime        *timex.Duration `json:"session_lifetime"`
	RateLimitPurgeInterval *timex.Duration `json:"rate_limit_purge_interval"`
	ShutdownTimeout        *timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads configuration values from a JSON file into the
// provided Config instance. Keys absent from the file keep their
// current values.
//
// The file path is taken from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != nil {
		config.EndpointAddr = *c.EndpointAddr
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	if c.EncryptionKey != nil {
		config.EncryptionKey = *c.EncryptionKey
	}
	if c.SessionLifetime != nil {
		config.SessionLifetime = c.SessionLifetime.Duration
	}
	if c.RateLimitPurgeInterval != nil {
		config.RateLimitPurgeInterval = c.RateLimitPurgeInterval.Duration
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
}
