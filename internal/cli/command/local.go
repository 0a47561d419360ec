package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardmap-go/internal/cli/connection"
	"github.com/yndnr/shardmap-go/internal/cli/output"
)

// LocalCommand returns the management commands served on the local socket.
func LocalCommand() *cli.Command {
	return &cli.Command{
		Name:  "local",
		Usage: "Manage a server through its Unix socket (--server unix:///path)",
		Subcommands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show process status",
				Action: localStatus,
			},
			{
				Name:   "reload",
				Usage:  "Re-read the server config file",
				Action: localReload,
			},
		},
		Before: requireSocket,
	}
}

func requireSocket(c *cli.Context) error {
	s, err := ResolveSettings(c)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(s.Server, connection.UnixScheme) {
		return cli.Exit("local commands need --server "+connection.UnixScheme+"<socket path>", 2)
	}
	return nil
}

func localStatus(c *cli.Context) error {
	client, ctx, cancel, err := connect(c)
	if err != nil {
		return err
	}
	defer cancel()

	st, err := client.LocalStatus(ctx)
	if err != nil {
		return err
	}

	table := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	table.AddRow("version", st.Version)
	table.AddRow("pid", strconv.Itoa(st.PID))
	table.AddRow("uptime", st.Uptime)
	table.AddRow("entries", strconv.Itoa(st.Entries))
	table.AddRow("goroutines", strconv.Itoa(st.Goroutines))
	table.AddRow("heap", output.FormatBytes(st.HeapBytes))
	return render(c, st, table)
}

func localReload(c *cli.Context) error {
	client, ctx, cancel, err := connect(c)
	if err != nil {
		return err
	}
	defer cancel()

	if err := client.Reload(ctx); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "configuration reloaded")
	return nil
}
