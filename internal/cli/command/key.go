package command

import (
	"io"

	"github.com/urfave/cli/v2"
)

// KeyCommand returns the key subcommand group.
func KeyCommand() *cli.Command {
	return &cli.Command{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "Operate on single keys of a running server",
		Subcommands: []*cli.Command{
			{
				Name:      "insert",
				Aliases:   []string{"put"},
				Usage:     "Insert a key if it is absent",
				ArgsUsage: "<key> <value|->",
				Action:    keyInsert,
			},
			{
				Name:      "get",
				Usage:     "Read a key",
				ArgsUsage: "<key>",
				Action:    keyGet,
			},
			{
				Name:      "delete",
				Aliases:   []string{"del", "rm"},
				Usage:     "Delete a key",
				ArgsUsage: "<key>",
				Action:    keyDelete,
			},
			{
				Name:      "replace",
				Usage:     "Replace the value of an existing key",
				ArgsUsage: "<key> <value|->",
				Action:    keyReplace,
			},
		},
	}
}

// valueArg returns the second argument, reading stdin when it is "-".
func valueArg(c *cli.Context) ([]byte, error) {
	v := c.Args().Get(1)
	if v != "-" {
		return []byte(v), nil
	}
	return io.ReadAll(c.App.Reader)
}

func keyInsert(c *cli.Context) error {
	if err := exactArgs(c, 2, "<key> <value|->"); err != nil {
		return err
	}
	value, err := valueArg(c)
	if err != nil {
		return err
	}
	client, ctx, cancel, err := connect(c)
	if err != nil {
		return err
	}
	defer cancel()

	resp, err := client.Insert(ctx, c.Args().First(), value)
	if err != nil {
		return err
	}
	return render(c, resp, nil)
}

func keyGet(c *cli.Context) error {
	if err := exactArgs(c, 1, "<key>"); err != nil {
		return err
	}
	client, ctx, cancel, err := connect(c)
	if err != nil {
		return err
	}
	defer cancel()

	resp, err := client.Get(ctx, c.Args().First())
	if err != nil {
		return err
	}
	return render(c, resp, nil)
}

func keyDelete(c *cli.Context) error {
	if err := exactArgs(c, 1, "<key>"); err != nil {
		return err
	}
	client, ctx, cancel, err := connect(c)
	if err != nil {
		return err
	}
	defer cancel()

	key := c.Args().First()
	if err := client.Delete(ctx, key); err != nil {
		return err
	}
	return render(c, map[string]any{"key": key, "deleted": true}, nil)
}

func keyReplace(c *cli.Context) error {
	if err := exactArgs(c, 2, "<key> <value|->"); err != nil {
		return err
	}
	value, err := valueArg(c)
	if err != nil {
		return err
	}
	client, ctx, cancel, err := connect(c)
	if err != nil {
		return err
	}
	defer cancel()

	resp, err := client.Replace(ctx, c.Args().First(), value)
	if err != nil {
		return err
	}
	return render(c, resp, nil)
}
