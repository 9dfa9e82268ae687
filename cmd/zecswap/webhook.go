package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/urfave/cli/v2"
	"github.com/zecswap/zecswap-daemon/pkg/util"
)

var webhooks = cli.Command{
	Name:  "webhooks",
	Usage: "manage the webhooks notified on order events",
	Subcommands: []*cli.Command{
		{
			Name:  "add",
			Usage: "add a webhook registered for some topic",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "endpoint",
					Usage:    "the endpoint where to notify the webhook",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "secret",
					Usage: "the eventual secret to authenticate requests",
				},
				&cli.StringFlag{
					Name:     "topic",
					Usage:    "the topic for which the webhook gets notified, * for all",
					Required: true,
				},
			},
			Action: addWebhookAction,
		},
		{
			Name:  "list",
			Usage: "list all webhooks, optionally filtered by topic",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "topic",
					Usage: "the topic to filter hooks by",
				},
			},
			Action: listWebhooksAction,
		},
		{
			Name:      "remove",
			Usage:     "remove a webhook",
			ArgsUsage: "<webhook id>",
			Action:    removeWebhookAction,
		},
	},
}

func addWebhookAction(ctx *cli.Context) error {
	server, header, err := getWatcherClient(ctx)
	if err != nil {
		return err
	}

	body := map[string]string{
		"topic":    ctx.String("topic"),
		"endpoint": ctx.String("endpoint"),
		"secret":   ctx.String("secret"),
	}
	reply := struct {
		Id string `json:"id"`
	}{}
	if err := util.DoJSON(
		context.Background(), http.MethodPost, server+"/v1/webhooks", body, &reply, header,
	); err != nil {
		return err
	}

	fmt.Fprintln(ctx.App.Writer, "hook id:", reply.Id)
	return nil
}

func listWebhooksAction(ctx *cli.Context) error {
	server, header, err := getWatcherClient(ctx)
	if err != nil {
		return err
	}

	endpoint := server + "/v1/webhooks"
	if topic := ctx.String("topic"); len(topic) > 0 {
		endpoint += "?topic=" + url.QueryEscape(topic)
	}

	var reply []map[string]interface{}
	if err := util.DoJSON(
		context.Background(), http.MethodGet, endpoint, nil, &reply, header,
	); err != nil {
		return err
	}

	return printRespJSON(ctx, reply)
}

func removeWebhookAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}
	server, header, err := getWatcherClient(ctx)
	if err != nil {
		return err
	}

	id := ctx.Args().First()
	if err := util.DoJSON(
		context.Background(), http.MethodDelete,
		server+"/v1/webhooks/"+url.PathEscape(id), nil, nil, header,
	); err != nil {
		return err
	}

	fmt.Fprintln(ctx.App.Writer, "removed hook", id)
	return nil
}

func getWatcherClient(ctx *cli.Context) (string, map[string]string, error) {
	server, err := getServerURL(ctx)
	if err != nil {
		return "", nil, err
	}
	header, err := getAuthHeader(ctx)
	if err != nil {
		return "", nil, err
	}
	return server, header, nil
}
