package command

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardmap-go/internal/cli/config"
	"github.com/yndnr/shardmap-go/internal/infra/secret"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect or persist CLI defaults",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the resolved settings",
				Action: configShow,
			},
			{
				Name:   "save",
				Usage:  "Write the resolved settings to the profile file",
				Action: configSave,
			},
			{
				Name:      "hash-password",
				Usage:     "Print an Argon2id hash for security.password",
				ArgsUsage: "<password|->",
				Action:    configHashPassword,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	s, err := ResolveSettings(c)
	if err != nil {
		return err
	}
	password := ""
	if s.Password != "" {
		password = "****"
	}
	return render(c, map[string]string{
		"profile":  c.String("config"),
		"server":   s.Server,
		"password": password,
		"output":   string(s.Output),
		"timeout":  s.Timeout.String(),
	}, nil)
}

func configSave(c *cli.Context) error {
	s, err := ResolveSettings(c)
	if err != nil {
		return err
	}
	path := c.String("config")
	cfg := &config.CLIConfig{
		Server:   s.Server,
		Password: s.Password,
		Output:   string(s.Output),
	}
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "saved %s\n", path)
	return nil
}

// configHashPassword hashes the argument, or the first stdin line for "-".
func configHashPassword(c *cli.Context) error {
	if err := exactArgs(c, 1, "<password|->"); err != nil {
		return err
	}
	password := c.Args().First()
	if password == "-" {
		line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return cli.Exit("password must not be empty", 2)
	}
	encoded, err := secret.Hash(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, encoded)
	return nil
}
