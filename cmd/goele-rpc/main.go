package main

// goele-rpc is a minimal client for the goele bridge server.
//
//	goele-rpc [-url http://localhost:8080] <method> [key=value ...]

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/go-zoox/jsonrpc"
	zoojc "github.com/go-zoox/jsonrpc/client"
	"github.com/go-zoox/logger"
	"github.com/spf13/cast"
)

// resultKeys are all keys the bridge methods return, in print order.
var resultKeys = []string{
	"address", "addresses", "valid", "mine",
	"confirmed", "unconfirmed", "unmatured",
	"history", "tx", "txid", "feerate",
	"uri", "status", "amount", "memo", "expiration", "metadata",
}

func parseParams(args []string) (jsonrpc.Params, error) {
	params := jsonrpc.Params{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("bad param %q, want key=value", arg)
		}
		params[k] = v
	}
	return params, nil
}

func main() {
	url := flag.String("url", "http://localhost:8080", "bridge server url")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: goele-rpc [-url url] <method> [key=value ...]")
		os.Exit(1)
	}
	method := flag.Arg(0)
	params, err := parseParams(flag.Args()[1:])
	if err != nil {
		logger.Errorf("%s", err)
		os.Exit(1)
	}

	c := zoojc.New(*url)
	r, err := c.Call(context.Background(), method, params)
	if err != nil {
		logger.Errorf("failed to call: %s", err)
		os.Exit(1)
	}

	for _, k := range resultKeys {
		if r.Get(k) == nil {
			continue
		}
		v := cast.ToString(r.Get(k))
		if strings.Contains(v, "\n") {
			fmt.Printf("%s:\n", k)
			for _, line := range strings.Split(v, "\n") {
				fmt.Println("  ", line)
			}
			continue
		}
		fmt.Printf("%s: %s\n", k, v)
	}
}
