package btc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/go-zoox/jsonrpc"
	"github.com/go-zoox/jsonrpc/server"
	"github.com/go-zoox/logger"
	"github.com/spf13/cast"

	"github.com/dev-warrior777/go-electrum-rpc/wallet"
)

// Bridge server: exposes the client operations as a small JSON-RPC service
// so non Go tools can drive a daemon wallet. Every result value is a string.

type rpcHandler = func(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error)

var errMissingParam = errors.New("missing param")

// RPCServe registers the bridge methods and serves until the process exits.
func (ec *BtcElectrumClient) RPCServe() {
	s := server.New()
	for name, h := range ec.rpcMethods() {
		s.Register(name, h)
	}
	logger.Info("bridge rpc server starting, daemon %s", ec.ClientConfig.RPCHost)
	s.Run()
}

func (ec *BtcElectrumClient) rpcMethods() map[string]rpcHandler {
	return map[string]rpcHandler{
		"getbalance":       ec.rpcGetBalance,
		"listaddresses":    ec.rpcListAddresses,
		"createnewaddress": ec.rpcCreateNewAddress,
		"validateaddress":  ec.rpcValidateAddress,
		"ismine":           ec.rpcIsMine,
		"history":          ec.rpcHistory,
		"payto":            ec.rpcPayTo,
		"paymax":           ec.rpcPayMax,
		"broadcast":        ec.rpcBroadcast,
		"getfeerate":       ec.rpcGetFeeRate,
		"addrequest":       ec.rpcAddRequest,
		"getrequest":       ec.rpcGetRequest,
		"setmetadata":      ec.rpcSetMetadata,
	}
}

func stringParam(params jsonrpc.Params, key string) (string, error) {
	v := strings.TrimSpace(cast.ToString(params.Get(key)))
	if v == "" {
		return "", fmt.Errorf("%w: %s", errMissingParam, key)
	}
	return v, nil
}

// amountParam reads a satoshi amount.
func amountParam(params jsonrpc.Params, key string) (btcutil.Amount, error) {
	v, err := cast.ToInt64E(params.Get(key))
	if err != nil {
		return 0, err
	}
	return btcutil.Amount(v), nil
}

func (ec *BtcElectrumClient) rpcGetBalance(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error) {
	logger.Debug("params: %s", params)
	bal, err := ec.GetBalance(ctx, cast.ToBool(params.Get("confirmedOnly")))
	if err != nil {
		return nil, err
	}
	return jsonrpc.Result{
		"confirmed":   cast.ToString(int64(bal.Confirmed)),
		"unconfirmed": cast.ToString(int64(bal.Unconfirmed)),
		"unmatured":   cast.ToString(int64(bal.Unmatured)),
	}, nil
}

func (ec *BtcElectrumClient) rpcListAddresses(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error) {
	addrs, err := ec.ListAddresses(ctx)
	if err != nil {
		return nil, err
	}
	return jsonrpc.Result{
		"addresses": strings.Join(addrs, "\n"),
	}, nil
}

func (ec *BtcElectrumClient) rpcCreateNewAddress(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error) {
	addr, err := ec.CreateNewAddress(ctx)
	if err != nil {
		return nil, err
	}
	return jsonrpc.Result{
		"address": addr,
	}, nil
}

func (ec *BtcElectrumClient) rpcValidateAddress(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error) {
	addr, err := stringParam(params, "address")
	if err != nil {
		return nil, err
	}
	valid, err := ec.IsValid(ctx, addr)
	if err != nil {
		return nil, err
	}
	return jsonrpc.Result{
		"valid": cast.ToString(valid),
	}, nil
}

func (ec *BtcElectrumClient) rpcIsMine(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error) {
	addr, err := stringParam(params, "address")
	if err != nil {
		return nil, err
	}
	mine, err := ec.IsMine(ctx, addr)
	if err != nil {
		return nil, err
	}
	return jsonrpc.Result{
		"mine": cast.ToString(mine),
	}, nil
}

// rpcHistory returns one line per tx: txid:height:confirmations:value:fee
func (ec *BtcElectrumClient) rpcHistory(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error) {
	minConf := cast.ToInt64(params.Get("minConfirms"))
	txs, err := ec.GetHistory(ctx, minConf)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	var last = len(txs) - 1
	for i, tx := range txs {
		sb.WriteString(tx.TxID)
		sb.WriteString(":")
		sb.WriteString(cast.ToString(tx.Height))
		sb.WriteString(":")
		sb.WriteString(cast.ToString(tx.Confirmations))
		sb.WriteString(":")
		sb.WriteString(cast.ToString(int64(tx.Value)))
		sb.WriteString(":")
		sb.WriteString(cast.ToString(int64(tx.Fee)))
		if i != last {
			sb.WriteString("\n")
		}
	}
	return jsonrpc.Result{
		"history": sb.String(),
	}, nil
}

func (ec *BtcElectrumClient) rpcPayTo(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error) {
	logger.Info("params: %s", params)
	addr, err := stringParam(params, "address")
	if err != nil {
		return nil, err
	}
	amt, err := amountParam(params, "amount")
	if err != nil {
		return nil, err
	}
	fee, err := amountParam(params, "fee")
	if err != nil {
		return nil, err
	}
	tx, err := ec.PayTo(ctx, addr, amt, fee)
	if err != nil {
		return nil, err
	}
	return jsonrpc.Result{
		"tx": tx,
	}, nil
}

func (ec *BtcElectrumClient) rpcPayMax(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error) {
	logger.Info("params: %s", params)
	addr, err := stringParam(params, "address")
	if err != nil {
		return nil, err
	}
	fee, err := amountParam(params, "fee")
	if err != nil {
		return nil, err
	}
	tx, err := ec.PayMax(ctx, addr, fee)
	if err != nil {
		return nil, err
	}
	return jsonrpc.Result{
		"tx": tx,
	}, nil
}

func (ec *BtcElectrumClient) rpcBroadcast(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error) {
	rawTx, err := stringParam(params, "rawTx")
	if err != nil {
		return nil, err
	}
	if len(rawTx) > 27 {
		logger.Info("rpc broadcast: %s ...", rawTx[:27])
	}
	txid, err := ec.Broadcast(ctx, rawTx)
	if err != nil {
		return nil, err
	}
	return jsonrpc.Result{
		"txid": txid,
	}, nil
}

func (ec *BtcElectrumClient) rpcGetFeeRate(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error) {
	level := 0.5
	if v := params.Get("level"); v != nil {
		var err error
		if level, err = cast.ToFloat64E(v); err != nil {
			return nil, err
		}
	}
	rate, err := ec.GetFeeRate(ctx, level)
	if err != nil {
		return nil, err
	}
	return jsonrpc.Result{
		"feerate": cast.ToString(rate),
	}, nil
}

func (ec *BtcElectrumClient) rpcAddRequest(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error) {
	amt, err := amountParam(params, "amount")
	if err != nil {
		return nil, err
	}
	pr, err := ec.CreatePaymentRequest(ctx, amt, cast.ToString(params.Get("memo")))
	if err != nil {
		return nil, err
	}
	return requestResult(pr), nil
}

func (ec *BtcElectrumClient) rpcGetRequest(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error) {
	addr, err := stringParam(params, "address")
	if err != nil {
		return nil, err
	}
	pr, err := ec.GetPaymentRequest(ctx, addr)
	if err != nil {
		return nil, err
	}
	return requestResult(pr), nil
}

func (ec *BtcElectrumClient) rpcSetMetadata(ctx context.Context, params jsonrpc.Params) (jsonrpc.Result, error) {
	addr, err := stringParam(params, "address")
	if err != nil {
		return nil, err
	}
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	pr, err := ec.SetPaymentRequestMetadata(ctx, addr, key, cast.ToString(params.Get("value")))
	if err != nil {
		return nil, err
	}
	return requestResult(pr), nil
}

// requestResult lists metadata one key=value per line, sorted by key.
func requestResult(pr *wallet.PaymentRequest) jsonrpc.Result {
	meta := make([]string, 0, len(pr.Metadata))
	for k, v := range pr.Metadata {
		meta = append(meta, k+"="+v)
	}
	sort.Strings(meta)
	return jsonrpc.Result{
		"address":    pr.Address,
		"uri":        pr.URI,
		"status":     pr.Status.String(),
		"amount":     cast.ToString(int64(pr.Amount)),
		"memo":       pr.Memo,
		"expiration": cast.ToString(pr.Expiration),
		"metadata":   strings.Join(meta, "\n"),
	}
}
