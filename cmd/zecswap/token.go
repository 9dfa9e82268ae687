package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	httpinterface "github.com/zecswap/zecswap-daemon/internal/interfaces/http"
)

const cliTokenTTL = time.Minute

var newToken = httpinterface.NewWatcherToken

var token = cli.Command{
	Name:  "token",
	Usage: "mint a token for a deposit watcher, signed with the watcher secret",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "subject",
			Usage: "the name of the watcher the token is issued to",
			Value: "watcher",
		},
		&cli.DurationFlag{
			Name:  "ttl",
			Usage: "how long the token is valid, 0 for no expiration",
			Value: 24 * time.Hour,
		},
	},
	Action: tokenAction,
}

func tokenAction(ctx *cli.Context) error {
	state, err := getState(ctx)
	if err != nil {
		return err
	}
	secret := state[secretKey]
	if len(secret) <= 0 {
		return errors.New("set watcher secret with `config set watcher_secret`")
	}

	tok, err := newToken(secret, ctx.String("subject"), ctx.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, tok)
	return nil
}
