package config

import "time"

// ServerConfig is the root configuration for shardmap-server.
type ServerConfig struct {
	Map      MapSection      `koanf:"map" yaml:"map" json:"map"`
	Server   ServerSection   `koanf:"server" yaml:"server" json:"server"`
	Security SecuritySection `koanf:"security" yaml:"security" json:"security"`
	Log      LogSection      `koanf:"log" yaml:"log" json:"log"`
}

// MapSection configures the served map.
type MapSection struct {
	// Buckets is the fixed bucket count.
	Buckets int `koanf:"buckets" yaml:"buckets" json:"buckets"`

	// Strategy selects the bucket collection: "btree" or "lockfree".
	Strategy string `koanf:"strategy" yaml:"strategy" json:"strategy"`

	// Hash names the string hasher, see hashfn.StringNames.
	Hash string `koanf:"hash" yaml:"hash" json:"hash"`

	// EntryLimit caps stored entries; 0 means unlimited.
	EntryLimit int64 `koanf:"entry_limit" yaml:"entry_limit" json:"entry_limit"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http" yaml:"http" json:"http"`
	RESP  RESPConfig  `koanf:"resp" yaml:"resp" json:"resp"`
	Local LocalConfig `koanf:"local" yaml:"local" json:"local"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr         string        `koanf:"addr" yaml:"addr" json:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" yaml:"idle_timeout" json:"idle_timeout"`
	RateLimit    int           `koanf:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	Audit        bool          `koanf:"audit" yaml:"audit" json:"audit"`
}

// RESPConfig configures the Redis protocol server.
type RESPConfig struct {
	Enabled      bool          `koanf:"enabled" yaml:"enabled" json:"enabled"`
	Addr         string        `koanf:"addr" yaml:"addr" json:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" yaml:"idle_timeout" json:"idle_timeout"`
	RateLimit    int           `koanf:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	MaxConns     int           `koanf:"max_conns" yaml:"max_conns" json:"max_conns"`
}

// LocalConfig configures the management socket.
type LocalConfig struct {
	// Socket is the Unix socket path; empty disables the local server.
	Socket string `koanf:"socket" yaml:"socket" json:"socket"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	// Password is required by RESP AUTH and HTTP Bearer auth when set. It
	// may be an Argon2id hash from "shardmap-cli config hash-password".
	Password string `koanf:"password" yaml:"password" json:"password"`
}

// LogSection configures logging.
type LogSection struct {
	Level        string `koanf:"level" yaml:"level" json:"level"`
	Format       string `koanf:"format" yaml:"format" json:"format"`
	AddSource    bool   `koanf:"add_source" yaml:"add_source" json:"add_source"`
	ShowPayloads bool   `koanf:"show_payloads" yaml:"show_payloads" json:"show_payloads"`
}
