package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"
)

var (
	serverFlag = &cli.StringFlag{
		Name:  "server",
		Usage: "zecswapd HTTP API url",
		Value: "http://localhost:8080",
	}

	secretFlag = &cli.StringFlag{
		Name:  "watcher-secret",
		Usage: "secret shared with the daemon to sign watcher tokens",
		Value: "",
	}
)

var config = cli.Command{
	Name:   "config",
	Usage:  "Print local configuration of the zecswap CLI",
	Action: configAction,
	Subcommands: []*cli.Command{
		{
			Name:   "set",
			Usage:  "set a <key> <value> in the local state",
			Action: configSetAction,
		},
		{
			Name:   "init",
			Usage:  "initialize the local state with flags",
			Action: configInitAction,
			Flags: []cli.Flag{
				serverFlag,
				secretFlag,
			},
		},
	},
}

func configAction(ctx *cli.Context) error {
	state, err := getState(ctx)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(state))
	for key := range state {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := state[key]
		if key == secretKey && len(value) > 0 {
			value = "********"
		}
		fmt.Fprintln(ctx.App.Writer, key+": "+value)
	}

	return nil
}

func configInitAction(ctx *cli.Context) error {
	return setState(ctx, map[string]string{
		serverKey: ctx.String(serverFlag.Name),
		secretKey: ctx.String(secretFlag.Name),
	})
}

func configSetAction(ctx *cli.Context) error {
	if ctx.NArg() < 2 {
		return errors.New("key and value are missing")
	}

	key := ctx.Args().Get(0)
	value := ctx.Args().Get(1)

	if err := setState(ctx, map[string]string{key: value}); err != nil {
		return err
	}

	fmt.Fprintf(ctx.App.Writer, "%s has been set\n", key)
	return nil
}
