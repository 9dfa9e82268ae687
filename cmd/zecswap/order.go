package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"
	"github.com/zecswap/zecswap-daemon/internal/core/application/status"
	"github.com/zecswap/zecswap-daemon/pkg/util"
)

var orderstatus = cli.Command{
	Name:      "status",
	Usage:     "get the status of an order",
	ArgsUsage: "<order id>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "watch",
			Usage: "follow the order until it reaches a final status",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "print the raw status view",
		},
	},
	Action: orderStatusAction,
}

var orders = cli.Command{
	Name:  "orders",
	Usage: "list orders, optionally filtered by status",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "status",
			Usage: "the statuses to filter orders by",
		},
	},
	Action: listOrdersAction,
}

var deposit = cli.Command{
	Name:      "deposit",
	Usage:     "report a deposit observed for an order",
	ArgsUsage: "<order id>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "tx",
			Usage:    "the reference of the deposit transaction",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "amount",
			Usage:    "the deposited amount of source asset",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "asset",
			Usage:    "the id of the deposited asset",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "memo",
			Usage: "the memo attached to the deposit, if any",
		},
	},
	Action: depositAction,
}

var settlement = cli.Command{
	Name:  "settlement",
	Usage: "report the outcome of the ZEC payout of an order",
	Subcommands: []*cli.Command{
		{
			Name:      "complete",
			Usage:     "mark the order as settled",
			ArgsUsage: "<order id>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "ref",
					Usage:    "the reference of the ZEC payout",
					Required: true,
				},
			},
			Action: completeSettlementAction,
		},
		{
			Name:      "fail",
			Usage:     "mark the order as failed",
			ArgsUsage: "<order id>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "reason",
					Usage: "why the payout failed",
				},
			},
			Action: failSettlementAction,
		},
	},
}

func orderStatusAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}
	server, err := getServerURL(ctx)
	if err != nil {
		return err
	}
	orderId := ctx.Args().First()

	if ctx.Bool("watch") {
		return watchOrder(ctx, server, orderId)
	}

	view := status.OrderStatusView{}
	if err := util.DoJSON(
		context.Background(), http.MethodGet,
		server+"/v1/orders/"+url.PathEscape(orderId), nil, &view, nil,
	); err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printRespJSON(ctx, view)
	}
	printOrder(ctx, view, time.Now())
	return nil
}

// watchOrder prints every update streamed by the daemon until the order is
// final and the server closes the stream.
func watchOrder(ctx *cli.Context, server, orderId string) error {
	wsURL := "ws" + strings.TrimPrefix(server, "http") +
		"/v1/orders/" + url.PathEscape(orderId) + "/stream"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx.Context, wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("order %s not found", orderId)
		}
		return fmt.Errorf("unable to stream order: %w", err)
	}
	defer conn.Close()

	for {
		view := status.OrderStatusView{}
		if err := conn.ReadJSON(&view); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("stream closed: %s", closeErr.Text)
			}
			return err
		}
		printOrder(ctx, view, time.Now())
		fmt.Fprintln(ctx.App.Writer)
	}
}

func listOrdersAction(ctx *cli.Context) error {
	server, err := getServerURL(ctx)
	if err != nil {
		return err
	}
	header, err := getAuthHeader(ctx)
	if err != nil {
		return err
	}

	endpoint := server + "/v1/orders"
	if statuses := ctx.StringSlice("status"); len(statuses) > 0 {
		endpoint += "?status=" + url.QueryEscape(strings.Join(statuses, ","))
	}

	var list []status.OrderStatusView
	if err := util.DoJSON(
		context.Background(), http.MethodGet, endpoint, nil, &list, header,
	); err != nil {
		return err
	}

	for _, v := range list {
		fmt.Fprintf(
			ctx.App.Writer, "%s %-10s %s %s -> %s ZEC\n",
			v.OrderId, statusColor(v.Status), v.ExpectedInputAmount,
			v.SourceAssetId, v.ExpectedOutput,
		)
	}
	return nil
}

func depositAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}
	body := map[string]string{
		"txReference": ctx.String("tx"),
		"amount":      ctx.String("amount"),
		"assetId":     ctx.String("asset"),
		"memo":        ctx.String("memo"),
	}
	return postOrderAction(ctx, "/deposits", body)
}

func completeSettlementAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}
	body := map[string]string{"settlementRef": ctx.String("ref")}
	return postOrderAction(ctx, "/settlement/complete", body)
}

func failSettlementAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}
	body := map[string]string{"reason": ctx.String("reason")}
	return postOrderAction(ctx, "/settlement/fail", body)
}

// postOrderAction sends an authenticated watcher report for the order given
// as first argument and prints the resulting status.
func postOrderAction(ctx *cli.Context, path string, body interface{}) error {
	server, err := getServerURL(ctx)
	if err != nil {
		return err
	}
	header, err := getAuthHeader(ctx)
	if err != nil {
		return err
	}

	orderId := ctx.Args().First()
	view := status.OrderStatusView{}
	if err := util.DoJSON(
		context.Background(), http.MethodPost,
		server+"/v1/orders/"+url.PathEscape(orderId)+path, body, &view, header,
	); err != nil {
		return err
	}

	printOrder(ctx, view, time.Now())
	return nil
}
