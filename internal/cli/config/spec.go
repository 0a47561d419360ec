package config

// CLIConfig is the configuration for shardmap-cli.
type CLIConfig struct {
	// Server is the HTTP address of shardmap-server.
	Server string `yaml:"server"`

	// Password is sent as a Bearer token when non-empty.
	Password string `yaml:"password,omitempty"`

	// Output is the default format: table, json or yaml.
	Output string `yaml:"output"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: "http://127.0.0.1:8080",
		Output: "table",
	}
}
