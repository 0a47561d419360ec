package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardmap-go/internal/cli/config"
	"github.com/yndnr/shardmap-go/internal/cli/connection"
	"github.com/yndnr/shardmap-go/internal/cli/output"
	"github.com/yndnr/shardmap-go/internal/infra/buildinfo"
)

const profileKey = "profile"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "shardmap-cli",
		Usage:                "Benchmark and operate shardmap",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			BenchCommand(),
			KeyCommand(),
			StatsCommand(),
			HealthCommand(),
			ConfigCommand(),
			LocalCommand(),
			ShellCommand(),
			VersionCommand(),
		},
		Before: loadProfile,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI profile `FILE`",
			EnvVars: []string{"SHARDMAP_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "shardmap-server address: host:port, http(s)://host:port or unix:///socket",
			EnvVars: []string{"SHARDMAP_SERVER"},
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "server password, sent as a Bearer token",
			EnvVars: []string{"SHARDMAP_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-request timeout",
			Value: connection.DefaultTimeout,
		},
	}
}

func loadProfile(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[profileKey] = cfg
	return nil
}

// Settings are the resolved global options: flags and environment over the
// profile over defaults.
type Settings struct {
	Server   string
	Password string
	Output   output.Format
	Timeout  time.Duration
}

// ResolveSettings merges the global flags with the loaded profile.
func ResolveSettings(c *cli.Context) (*Settings, error) {
	profile, ok := c.App.Metadata[profileKey].(*config.CLIConfig)
	if !ok {
		profile = config.Default()
	}
	s := &Settings{
		Server:   profile.Server,
		Password: profile.Password,
		Timeout:  c.Duration("timeout"),
	}
	if v := c.String("server"); v != "" {
		s.Server = v
	}
	if v := c.String("password"); v != "" {
		s.Password = v
	}
	format := profile.Output
	if v := c.String("output"); v != "" {
		format = v
	}
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	s.Output = f
	return s, nil
}

// connect resolves settings and returns an HTTP client with a request
// context bounded by the timeout.
func connect(c *cli.Context) (*connection.HTTPClient, context.Context, context.CancelFunc, error) {
	s, err := ResolveSettings(c)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(c.Context, s.Timeout)
	return connection.NewHTTPClient(s.Server, s.Password), ctx, cancel, nil
}

// render writes data in the selected output format. table, when non-nil,
// replaces data in table mode.
func render(c *cli.Context, data any, table *output.Table) error {
	s, err := ResolveSettings(c)
	if err != nil {
		return err
	}
	if s.Output == output.FormatTable && table != nil {
		return table.Render(c.App.Writer)
	}
	return output.NewFormatter(s.Output).Format(c.App.Writer, data)
}

// exactArgs checks the positional argument count.
func exactArgs(c *cli.Context, n int, usage string) error {
	if c.NArg() != n {
		return cli.Exit(fmt.Sprintf("usage: %s %s", c.Command.HelpName, usage), 2)
	}
	return nil
}
