package command

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardmap-go/internal/cli/output"
)

// StatsCommand returns the stats command.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show bucket occupancy of a running server",
		Action: stats,
	}
}

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check that the server is alive",
		Action: health,
	}
}

func stats(c *cli.Context) error {
	client, ctx, cancel, err := connect(c)
	if err != nil {
		return err
	}
	defer cancel()

	s, err := client.Stats(ctx)
	if err != nil {
		return err
	}

	table := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	table.AddRow("strategy", s.Strategy)
	table.AddRow("buckets", strconv.Itoa(s.Buckets))
	table.AddRow("entries", strconv.Itoa(s.Entries))
	table.AddRow("empty_buckets", strconv.Itoa(s.Empty))
	table.AddRow("min/max", fmt.Sprintf("%d/%d", s.Min, s.Max))
	table.AddRow("mean", strconv.FormatFloat(s.Mean, 'f', 2, 64))
	table.AddRow("stddev", strconv.FormatFloat(s.StdDev, 'f', 2, 64))
	table.AddRow("uptime", s.Uptime)
	return render(c, s, table)
}

func health(c *cli.Context) error {
	client, ctx, cancel, err := connect(c)
	if err != nil {
		return err
	}
	defer cancel()

	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("server unhealthy: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "%s is healthy\n", client.BaseURL())
	return nil
}
