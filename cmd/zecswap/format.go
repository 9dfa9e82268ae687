package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"github.com/zecswap/zecswap-daemon/internal/core/application/status"
)

var (
	okColor   = color.New(color.FgGreen).SprintFunc()
	warnColor = color.New(color.FgYellow).SprintFunc()
	busyColor = color.New(color.FgCyan).SprintFunc()
	errColor  = color.New(color.FgRed).SprintFunc()
)

func statusColor(st string) string {
	switch st {
	case "complete", "unused":
		return okColor(st)
	case "pending":
		return warnColor(st)
	case "deposited", "processing", "consumed":
		return busyColor(st)
	case "failed", "expired", "allocation_failed":
		return errColor(st)
	default:
		return st
	}
}

// countdown renders a deadline as the time left before it, or as expired.
func countdown(deadline time.Time, secondsRemaining int64) string {
	if secondsRemaining <= 0 {
		return errColor("expired " + humanize.Time(deadline))
	}
	left := time.Duration(secondsRemaining) * time.Second
	return fmt.Sprintf("%s left (%s)", left, deadline.Local().Format(time.Kitchen))
}

func printOrder(ctx *cli.Context, v status.OrderStatusView, now time.Time) {
	w := ctx.App.Writer
	fmt.Fprintln(w, "order:", v.OrderId, statusColor(v.Status))
	fmt.Fprintf(w, "  deposit:     %s %s\n", v.ExpectedInputAmount, v.SourceAssetId)
	fmt.Fprintf(w, "  to address:  %s\n", v.DepositAddress)
	if len(v.DepositMemo) > 0 {
		fmt.Fprintf(w, "  with memo:   %s\n", warnColor(v.DepositMemo))
	}
	fmt.Fprintf(w, "  received:    %s\n", v.AccumulatedAmount)
	fmt.Fprintf(w, "  expected:    %s ZEC\n", v.ExpectedOutput)
	fmt.Fprintf(w, "  destination: %s\n", v.DestinationAddress)
	if v.Status == "pending" {
		fmt.Fprintf(w, "  deadline:    %s\n", countdown(v.DepositDeadline, v.SecondsRemaining))
	}
	if len(v.SettlementRef) > 0 {
		fmt.Fprintf(w, "  settlement:  %s\n", v.SettlementRef)
	}
	if len(v.FailureReason) > 0 {
		fmt.Fprintf(w, "  reason:      %s\n", errColor(v.FailureReason))
	}
	for _, d := range v.ObservedDeposits {
		flag := ""
		if d.Late {
			flag = warnColor("late")
		}
		fmt.Fprintf(
			w, "  - deposit %s %s %s %s\n",
			d.TxReference, d.Amount, humanize.RelTime(d.ObservedAt, now, "ago", "from now"), flag,
		)
	}
}
