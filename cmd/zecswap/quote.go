package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/zecswap/zecswap-daemon/internal/core/application/status"
	"github.com/zecswap/zecswap-daemon/pkg/util"
)

type assetRow struct {
	AssetId         string `json:"assetId"`
	Symbol          string `json:"symbol"`
	ChainName       string `json:"chainName"`
	Decimals        uint32 `json:"decimals"`
	MemoRequired    bool   `json:"memoRequired"`
	ContractAddress string `json:"contractAddress,omitempty"`
}

type quoteInfo struct {
	QuoteId          string    `json:"quoteId"`
	SourceAssetId    string    `json:"sourceAssetId"`
	Mode             string    `json:"mode"`
	RequestedAmount  string    `json:"requestedAmount"`
	InputAmount      string    `json:"inputAmount"`
	ExpectedOutput   string    `json:"expectedOutput"`
	FeeAmount        string    `json:"feeAmount"`
	FeeRate          string    `json:"feeRate"`
	ExchangeRate     string    `json:"exchangeRate"`
	IssuedAt         time.Time `json:"issuedAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	SecondsRemaining int64     `json:"secondsRemaining"`
	Status           string    `json:"status"`
	OrderId          string    `json:"orderId,omitempty"`
}

var assets = cli.Command{
	Name:   "assets",
	Usage:  "list the assets that can be swapped for ZEC",
	Action: assetsAction,
}

var tokens = cli.Command{
	Name:   "tokens",
	Usage:  "list the assets in the token list format served to wallets",
	Action: tokensAction,
}

var quote = cli.Command{
	Name:  "quote",
	Usage: "request a quote to swap an asset for ZEC, or get an existing one",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "asset",
			Usage: "the id of the source asset",
		},
		&cli.StringFlag{
			Name:  "amount",
			Usage: "the amount of source asset to pay, or of ZEC to receive",
		},
		&cli.StringFlag{
			Name:  "mode",
			Usage: "pay to fix the input amount, receive to fix the ZEC output",
			Value: "pay",
		},
		&cli.StringFlag{
			Name:  "id",
			Usage: "the id of an existing quote to get",
		},
	},
	Action: quoteAction,
}

var accept = cli.Command{
	Name:      "accept",
	Usage:     "accept a quote and get a deposit address for the new order",
	ArgsUsage: "<quote id>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "destination",
			Usage:    "the transparent zcash address receiving the ZEC",
			Required: true,
		},
	},
	Action: acceptAction,
}

func assetsAction(ctx *cli.Context) error {
	server, err := getServerURL(ctx)
	if err != nil {
		return err
	}

	var list []assetRow
	if err := util.DoJSON(
		context.Background(), http.MethodGet, server+"/v1/assets", nil, &list, nil,
	); err != nil {
		return err
	}

	for _, a := range list {
		memo := ""
		if a.MemoRequired {
			memo = warnColor("memo required")
		}
		fmt.Fprintf(
			ctx.App.Writer, "%-24s %-8s %-10s %d %s\n",
			a.AssetId, a.Symbol, a.ChainName, a.Decimals, memo,
		)
	}
	return nil
}

func tokensAction(ctx *cli.Context) error {
	server, err := getServerURL(ctx)
	if err != nil {
		return err
	}

	var list []map[string]interface{}
	if err := util.DoJSON(
		context.Background(), http.MethodGet, server+"/api/tokens", nil, &list, nil,
	); err != nil {
		return err
	}
	return printRespJSON(ctx, list)
}

func quoteAction(ctx *cli.Context) error {
	server, err := getServerURL(ctx)
	if err != nil {
		return err
	}

	q := quoteInfo{}
	if id := ctx.String("id"); len(id) > 0 {
		if err := util.DoJSON(
			context.Background(), http.MethodGet,
			server+"/v1/quotes/"+url.PathEscape(id), nil, &q, nil,
		); err != nil {
			return err
		}
		printQuote(ctx, q)
		return nil
	}

	asset, amount := ctx.String("asset"), ctx.String("amount")
	if len(asset) <= 0 || len(amount) <= 0 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	body := map[string]string{
		"sourceAssetId": asset,
		"amount":        amount,
		"mode":          ctx.String("mode"),
	}
	if err := util.DoJSON(
		context.Background(), http.MethodPost, server+"/v1/quotes", body, &q, nil,
	); err != nil {
		return err
	}
	printQuote(ctx, q)
	return nil
}

func acceptAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}
	server, err := getServerURL(ctx)
	if err != nil {
		return err
	}

	quoteId := ctx.Args().First()
	body := map[string]string{
		"destinationAddress": ctx.String("destination"),
	}
	view := status.OrderStatusView{}
	if err := util.DoJSON(
		context.Background(), http.MethodPost,
		server+"/v1/quotes/"+url.PathEscape(quoteId)+"/accept", body, &view, nil,
	); err != nil {
		return err
	}

	printOrder(ctx, view, time.Now())
	return nil
}

func printQuote(ctx *cli.Context, q quoteInfo) {
	w := ctx.App.Writer
	fmt.Fprintln(w, "quote:", q.QuoteId, statusColor(q.Status))
	fmt.Fprintf(w, "  pay:     %s %s\n", q.InputAmount, q.SourceAssetId)
	fmt.Fprintf(w, "  receive: %s ZEC\n", q.ExpectedOutput)
	fmt.Fprintf(w, "  fee:     %s (%s)\n", q.FeeAmount, q.FeeRate)
	fmt.Fprintf(w, "  rate:    %s\n", q.ExchangeRate)
	fmt.Fprintf(w, "  expires: %s\n", countdown(q.ExpiresAt, q.SecondsRemaining))
	if len(q.OrderId) > 0 {
		fmt.Fprintln(w, "  order:  ", q.OrderId)
	}
}
