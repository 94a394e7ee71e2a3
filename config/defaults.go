package config

import "time"

// DefaultConfig returns the configuration used when no file and no
// environment overrides are present.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Events: EventsConfig{
			QueueSize:    256,
			RedisChannel: "agentcore:events",
		},
		Models: ModelsConfig{
			Default:       "default",
			SelectTimeout: 2 * time.Second,
		},
		DefaultLimit: LimitConfig{
			Capacity:   10,
			RefillRate: 1,
		},
		MaxSteps: 32,
	}
}
