package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"

	"github.com/dev-warrior777/go-electrum-rpc/client/btc"
	"github.com/dev-warrior777/go-electrum-rpc/wallet"
)

type command struct {
	name, short, long string
	data              any
}

func addCommands(parser *flags.Parser) error {
	cmds := []command{
		{"ping", "Show the daemon version", "", &pingCmd{}},
		{"balance", "Show the wallet balance", "", &balanceCmd{}},
		{"history", "List wallet transactions", "", &historyCmd{}},
		{"addresses", "List wallet addresses", "", &addressesCmd{}},
		{"newaddress", "Create a new receiving address", "", &newAddressCmd{}},
		{"unusedaddress", "Show the first unused receiving address", "", &unusedAddressCmd{}},
		{"ismine", "Check an address belongs to the wallet", "", &isMineCmd{}},
		{"validate", "Check an address is valid", "", &validateCmd{}},
		{"payto", "Create a signed tx paying <address> <sats>",
			"Create and sign a transaction. The tx is printed and NOT broadcast.", &payToCmd{}},
		{"paymax", "Create a signed tx spending the whole balance to <address>",
			"Create and sign a transaction. The tx is printed and NOT broadcast.", &payMaxCmd{}},
		{"broadcast", "Broadcast a raw hex tx", "", &broadcastCmd{}},
		{"feerate", "Show the fee rate in sat/vB for a level", "", &feeRateCmd{}},
		{"addrequest", "Create a payment request for <sats>", "", &addRequestCmd{}},
		{"getrequest", "Show the payment request for <address>", "", &getRequestCmd{}},
		{"listrequests", "List the wallet payment requests", "", &listRequestsCmd{}},
		{"journal", "List payment requests created by this client", "", &journalCmd{}},
		{"setmeta", "Attach <key> <value> to the request for <address>", "", &setMetaCmd{}},
		{"waitpayment", "Wait until the request for <address> is paid or expires", "", &waitPaymentCmd{}},
		{"serve", "Run the JSON-RPC bridge server", "", &serveCmd{}},
	}
	for _, c := range cmds {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return err
		}
	}
	return nil
}

func needArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func parseSats(s string) (btcutil.Amount, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a satoshi amount", wallet.ErrInvalidAmount, s)
	}
	return btcutil.Amount(v), nil
}

func printRequest(pr *wallet.PaymentRequest) {
	fmt.Printf("%s\n  uri: %s\n  status: %s (%s)\n  amount: %s\n  memo: %s\n",
		pr.Address, pr.URI, pr.Status, pr.StatusString, pr.Amount, pr.Memo)
	if pr.Expiration > 0 {
		fmt.Printf("  expires: %s\n", time.Unix(pr.Expiration, 0).Format(time.RFC3339))
	}
	keys := make([]string, 0, len(pr.Metadata))
	for k := range pr.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %s\n", k, pr.Metadata[k])
	}
}

type pingCmd struct{}

func (cmd *pingCmd) Execute(args []string) error {
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		v, err := ec.Ping(ctx)
		if err != nil {
			return err
		}
		fmt.Println("electrum", v)
		return nil
	})
}

type balanceCmd struct {
	Confirmed bool `long:"confirmed" description:"Only the confirmed balance"`
}

func (cmd *balanceCmd) Execute(args []string) error {
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		bal, err := ec.GetBalance(ctx, cmd.Confirmed)
		if err != nil {
			return err
		}
		fmt.Println("confirmed:  ", bal.Confirmed)
		if !cmd.Confirmed {
			fmt.Println("unconfirmed:", bal.Unconfirmed)
			fmt.Println("unmatured:  ", bal.Unmatured)
			fmt.Println("total:      ", bal.Total())
		}
		return nil
	})
}

type historyCmd struct {
	MinConf int64 `long:"minconf" description:"Minimum confirmations"`
}

func (cmd *historyCmd) Execute(args []string) error {
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		txs, err := ec.GetHistory(ctx, cmd.MinConf)
		if err != nil {
			return err
		}
		for _, tx := range txs {
			fmt.Printf("%s height=%d conf=%d value=%s fee=%s %s\n",
				tx.TxID, tx.Height, tx.Confirmations, tx.Value, tx.Fee, tx.Label)
		}
		return nil
	})
}

type addressesCmd struct{}

func (cmd *addressesCmd) Execute(args []string) error {
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		addrs, err := ec.ListAddresses(ctx)
		if err != nil {
			return err
		}
		for _, a := range addrs {
			fmt.Println(a)
		}
		return nil
	})
}

type newAddressCmd struct{}

func (cmd *newAddressCmd) Execute(args []string) error {
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		addr, err := ec.CreateNewAddress(ctx)
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil
	})
}

type unusedAddressCmd struct{}

func (cmd *unusedAddressCmd) Execute(args []string) error {
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		addr, err := ec.GetUnusedAddress(ctx)
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil
	})
}

type isMineCmd struct{}

func (cmd *isMineCmd) Execute(args []string) error {
	if err := needArgs(args, 1, "ismine <address>"); err != nil {
		return err
	}
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		mine, err := ec.IsMine(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(mine)
		return nil
	})
}

type validateCmd struct{}

func (cmd *validateCmd) Execute(args []string) error {
	if err := needArgs(args, 1, "validate <address>"); err != nil {
		return err
	}
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		valid, err := ec.IsValid(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(valid)
		return nil
	})
}

type payToCmd struct {
	Fee int64 `long:"fee" description:"Absolute fee in satoshis (0 lets the daemon decide)"`
}

func (cmd *payToCmd) Execute(args []string) error {
	if err := needArgs(args, 2, "payto <address> <sats>"); err != nil {
		return err
	}
	amt, err := parseSats(args[1])
	if err != nil {
		return err
	}
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		tx, err := ec.PayTo(ctx, args[0], amt, btcutil.Amount(cmd.Fee))
		if err != nil {
			return err
		}
		fmt.Println(tx)
		return nil
	})
}

type payMaxCmd struct {
	Fee int64 `long:"fee" description:"Absolute fee in satoshis (0 lets the daemon decide)"`
}

func (cmd *payMaxCmd) Execute(args []string) error {
	if err := needArgs(args, 1, "paymax <address>"); err != nil {
		return err
	}
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		tx, err := ec.PayMax(ctx, args[0], btcutil.Amount(cmd.Fee))
		if err != nil {
			return err
		}
		fmt.Println(tx)
		return nil
	})
}

type broadcastCmd struct{}

func (cmd *broadcastCmd) Execute(args []string) error {
	if err := needArgs(args, 1, "broadcast <rawtx>"); err != nil {
		return err
	}
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		txid, err := ec.Broadcast(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(txid)
		return nil
	})
}

type feeRateCmd struct {
	Level float64 `long:"level" default:"0.5" description:"Fee level from 0.0 (cheapest) to 1.0 (fastest)"`
}

func (cmd *feeRateCmd) Execute(args []string) error {
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		rate, err := ec.GetFeeRate(ctx, cmd.Level)
		if err != nil {
			return err
		}
		fmt.Printf("%.3f sat/vB\n", rate)
		return nil
	})
}

type addRequestCmd struct {
	Memo string `long:"memo" description:"Description shown to the payer"`
}

func (cmd *addRequestCmd) Execute(args []string) error {
	if err := needArgs(args, 1, "addrequest <sats>"); err != nil {
		return err
	}
	amt, err := parseSats(args[0])
	if err != nil {
		return err
	}
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		pr, err := ec.CreatePaymentRequest(ctx, amt, cmd.Memo)
		if err != nil {
			return err
		}
		printRequest(pr)
		return nil
	})
}

type getRequestCmd struct{}

func (cmd *getRequestCmd) Execute(args []string) error {
	if err := needArgs(args, 1, "getrequest <address>"); err != nil {
		return err
	}
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		pr, err := ec.GetPaymentRequest(ctx, args[0])
		if err != nil {
			return err
		}
		printRequest(pr)
		return nil
	})
}

type listRequestsCmd struct{}

func (cmd *listRequestsCmd) Execute(args []string) error {
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		prs, err := ec.ListPaymentRequests(ctx)
		if err != nil {
			return err
		}
		for _, pr := range prs {
			printRequest(pr)
		}
		return nil
	})
}

type journalCmd struct{}

func (cmd *journalCmd) Execute(args []string) error {
	return withClient(func(_ context.Context, ec *btc.BtcElectrumClient) error {
		prs, err := ec.JournalRequests()
		if err != nil {
			return err
		}
		for _, pr := range prs {
			printRequest(pr)
		}
		return nil
	})
}

type setMetaCmd struct{}

func (cmd *setMetaCmd) Execute(args []string) error {
	if err := needArgs(args, 3, "setmeta <address> <key> <value>"); err != nil {
		return err
	}
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		pr, err := ec.SetPaymentRequestMetadata(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		printRequest(pr)
		return nil
	})
}

type waitPaymentCmd struct {
	Poll    time.Duration `long:"poll" default:"5s" description:"Poll interval"`
	Timeout time.Duration `long:"waittimeout" description:"Give up after this long (0 waits forever)"`
}

func (cmd *waitPaymentCmd) Execute(args []string) error {
	if err := needArgs(args, 1, "waitpayment <address>"); err != nil {
		return err
	}
	return withClient(func(ctx context.Context, ec *btc.BtcElectrumClient) error {
		if cmd.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
			defer cancel()
		}
		pr, err := ec.WaitForPayment(ctx, args[0], cmd.Poll)
		if pr != nil {
			printRequest(pr)
		}
		if errors.Is(err, btc.ErrRequestExpired) {
			fmt.Println("request expired")
		}
		return err
	})
}

type serveCmd struct{}

func (cmd *serveCmd) Execute(args []string) error {
	return withClient(func(_ context.Context, ec *btc.BtcElectrumClient) error {
		// SIGINT kills the bridge server
		ec.RPCServe()
		return nil
	})
}
