package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/urfave/cli/v2"
	"github.com/zecswap/zecswap-daemon/pkg/util"
)

const (
	stateFilename = "state.json"

	serverKey = "server"
	secretKey = "watcher_secret"
)

var (
	version = "dev"

	defaultDatadir = btcutil.AppDataDir("zecswap-cli", false)

	datadirFlag = &cli.StringFlag{
		Name:    "datadir",
		Usage:   "directory where the CLI state is stored",
		EnvVars: []string{"ZECSWAP_CLI_DATADIR"},
		Value:   defaultDatadir,
	}
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp(w io.Writer) *cli.App {
	app := cli.NewApp()

	app.Version = version
	app.Name = "zecswap"
	app.Usage = "Command line interface for zecswapd operators and deposit watchers"
	app.Writer = w
	app.Flags = []cli.Flag{datadirFlag}
	app.Commands = append(
		app.Commands,
		&config,
		&assets,
		&tokens,
		&quote,
		&accept,
		&orderstatus,
		&orders,
		&deposit,
		&settlement,
		&webhooks,
		&token,
	)
	return app
}

func statePath(ctx *cli.Context) string {
	return filepath.Join(ctx.String(datadirFlag.Name), stateFilename)
}

func getState(ctx *cli.Context) (map[string]string, error) {
	data := map[string]string{}

	file, err := os.ReadFile(statePath(ctx))
	if err != nil {
		return nil, errors.New("get config state error: try 'config init'")
	}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("invalid config state: %w", err)
	}

	return data, nil
}

func setState(ctx *cli.Context, data map[string]string) error {
	datadir := ctx.String(datadirFlag.Name)
	if err := os.MkdirAll(datadir, os.ModeDir|0700); err != nil {
		return err
	}

	currentData, err := getState(ctx)
	if err != nil {
		currentData = map[string]string{}
	}

	mergedData := merge(currentData, data)

	jsonString, err := json.Marshal(mergedData)
	if err != nil {
		return err
	}
	if err := os.WriteFile(statePath(ctx), jsonString, 0600); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func merge(maps ...map[string]string) map[string]string {
	merge := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merge[k] = v
		}
	}
	return merge
}

// getServerURL returns the base url of the daemon without trailing slash.
func getServerURL(ctx *cli.Context) (string, error) {
	state, err := getState(ctx)
	if err != nil {
		return "", err
	}
	server, ok := state[serverKey]
	if !ok || len(server) <= 0 {
		return "", errors.New("set server with `config set server`")
	}
	return strings.TrimSuffix(server, "/"), nil
}

// getAuthHeader returns the header carrying a short lived watcher token
// signed with the secret stored in the local state.
func getAuthHeader(ctx *cli.Context) (map[string]string, error) {
	state, err := getState(ctx)
	if err != nil {
		return nil, err
	}
	secret, ok := state[secretKey]
	if !ok || len(secret) <= 0 {
		return nil, errors.New("set watcher secret with `config set watcher_secret`")
	}
	tok, err := newToken(secret, "zecswap-cli", cliTokenTTL)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + tok}, nil
}

func printRespJSON(ctx *cli.Context, resp interface{}) error {
	buf, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return fmt.Errorf("unable to decode response: %w", err)
	}
	fmt.Fprintln(ctx.App.Writer, string(buf))
	return nil
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	var httpErr *util.HTTPError
	switch {
	case errors.As(err, &e):
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	case errors.As(err, &httpErr):
		_, _ = fmt.Fprintf(os.Stderr, "[zecswap] %s\n", httpErr.Message)
	default:
		_, _ = fmt.Fprintf(os.Stderr, "[zecswap] %v\n", err)
	}
	os.Exit(1)
}
