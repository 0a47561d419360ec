package command

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardmap-go/internal/cli/repl"
)

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Run commands interactively against a server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history",
				Usage: "history `FILE`; empty keeps history in memory",
				Value: repl.DefaultHistoryPath(),
			},
		},
		Action: runShell,
	}
}

func runShell(c *cli.Context) error {
	s, err := ResolveSettings(c)
	if err != nil {
		return err
	}

	// Every line runs as a fresh invocation carrying the session's settings.
	global := []string{
		c.App.Name,
		"--config", c.String("config"),
		"--server", s.Server,
		"--output", string(s.Output),
		"--timeout", s.Timeout.String(),
	}
	if s.Password != "" {
		global = append(global, "--password", s.Password)
	}

	exec := func(ctx context.Context, args []string) error {
		if args[0] == "shell" {
			return errors.New("already in a shell")
		}
		app := App()
		app.Name = c.App.Name
		app.Writer = c.App.Writer
		app.ErrWriter = c.App.ErrWriter
		app.Reader = strings.NewReader("")
		app.ExitErrHandler = func(*cli.Context, error) {}
		return app.RunContext(ctx, append(slices.Clone(global), args...))
	}

	history := repl.NewHistory(c.String("history"), repl.DefaultHistorySize)
	if err := history.Load(); err != nil {
		return cli.Exit("load history: "+err.Error(), 1)
	}

	r := repl.New(exec,
		repl.WithIO(c.App.Reader, c.App.Writer),
		repl.WithHistory(history),
		repl.WithCompleter(repl.NewCompleter(commandPaths(c.App.Commands, ""))),
	)
	runErr := r.Run(c.Context)
	if err := history.Save(); err != nil && runErr == nil {
		runErr = err
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// commandPaths lists every visible command as a space separated path, for
// example "key get".
func commandPaths(cmds []*cli.Command, parent string) []string {
	var paths []string
	for _, cmd := range cmds {
		if cmd.Hidden {
			continue
		}
		path := strings.TrimSpace(parent + " " + cmd.Name)
		paths = append(paths, path)
		paths = append(paths, commandPaths(cmd.Subcommands, path)...)
	}
	return paths
}
