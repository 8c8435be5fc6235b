package main

// goele drives an Electrum wallet daemon from the command line.

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/go-zoox/logger"
	flags "github.com/jessevdk/go-flags"

	"github.com/dev-warrior777/go-electrum-rpc/client"
	"github.com/dev-warrior777/go-electrum-rpc/client/btc"
)

// cfg holds the global options shared by all commands.
var cfg = client.NewDefaultConfig()

// withClient connects to the daemon, runs fn and closes the client. SIGINT
// cancels the context passed to fn.
func withClient(fn func(ctx context.Context, ec *btc.BtcElectrumClient) error) error {
	if err := cfg.ApplyNetwork(); err != nil {
		return err
	}
	ec, err := btc.NewBtcElectrumClient(cfg)
	if err != nil {
		return err
	}
	defer ec.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return fn(ctx, ec)
}

func realMain() error {
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	parserFlags := flags.Options(flags.HelpFlag | flags.PassDoubleDash)
	parser := flags.NewNamedParser(appName, parserFlags)
	if _, err := parser.AddGroup("Global Options", "", cfg); err != nil {
		return err
	}
	if err := addCommands(parser); err != nil {
		return err
	}

	// Parse command line and invoke the Execute function for the specified
	// command.
	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		} else {
			logger.Error("%v", err)
		}
		return err
	}
	return nil
}

func main() {
	fmt.Fprintln(os.Stderr, "Goele", client.GoeleVersion)
	if err := realMain(); err != nil {
		os.Exit(1)
	}
}
