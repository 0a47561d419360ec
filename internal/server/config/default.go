package config

import "time"

// Default configuration values.
const (
	DefaultBuckets  = 1024
	DefaultStrategy = "btree"
	DefaultHash     = "xxhash"

	DefaultHTTPAddr = "127.0.0.1:8080"
	DefaultRESPAddr = "127.0.0.1:6380"

	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultIdleTimeout  = 5 * time.Minute
	DefaultMaxConns     = 1024

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Map: MapSection{
			Buckets:  DefaultBuckets,
			Strategy: DefaultStrategy,
			Hash:     DefaultHash,
		},
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:         DefaultHTTPAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
				Audit:        true,
			},
			RESP: RESPConfig{
				Enabled:      true,
				Addr:         DefaultRESPAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
				MaxConns:     DefaultMaxConns,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
