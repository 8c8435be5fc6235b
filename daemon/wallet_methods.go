package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// PayMaxAmount is the payto amount that spends the whole wallet balance.
const PayMaxAmount = "!"

// ----------------------------------------------------------------------------
// Daemon
// ----------------------------------------------------------------------------

// Version returns the software version of the daemon. Cheap; used as a ping.
func (d *Daemon) Version(ctx context.Context) (string, error) {
	var vers string
	err := d.conn.request(ctx, "version", nil, &vers)
	if err != nil {
		return "", err
	}
	return vers, nil
}

// ----------------------------------------------------------------------------
// Addresses
// ----------------------------------------------------------------------------

// IsMine checks if the address belongs to the loaded wallet.
func (d *Daemon) IsMine(ctx context.Context, address string) (bool, error) {
	var mine bool
	err := d.conn.request(ctx, "ismine", positional{address}, &mine)
	if err != nil {
		return false, err
	}
	return mine, nil
}

// ValidateAddress checks that address is a valid address for the network
// the daemon runs on.
func (d *Daemon) ValidateAddress(ctx context.Context, address string) (bool, error) {
	var valid bool
	err := d.conn.request(ctx, "validateaddress", positional{address}, &valid)
	if err != nil {
		return false, err
	}
	return valid, nil
}

// ListAddresses lists all addresses of the loaded wallet.
func (d *Daemon) ListAddresses(ctx context.Context) ([]string, error) {
	var addrs []string
	err := d.conn.request(ctx, "listaddresses", nil, &addrs)
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// CreateNewAddress creates a new receiving address beyond the gap limit.
func (d *Daemon) CreateNewAddress(ctx context.Context) (string, error) {
	var addr string
	err := d.conn.request(ctx, "createnewaddress", nil, &addr)
	if err != nil {
		return "", err
	}
	return addr, nil
}

// GetUnusedAddress returns the first unused receiving address.
func (d *Daemon) GetUnusedAddress(ctx context.Context) (string, error) {
	var addr string
	err := d.conn.request(ctx, "getunusedaddress", nil, &addr)
	if err != nil {
		return "", err
	}
	return addr, nil
}

// ----------------------------------------------------------------------------
// Balance & history
// ----------------------------------------------------------------------------

// GetBalanceResult holds BTC amounts as the decimal strings the daemon sends.
// Keys the wallet has nothing for are left out by the daemon.
type GetBalanceResult struct {
	Confirmed   string `json:"confirmed"`
	Unconfirmed string `json:"unconfirmed,omitempty"`
	Unmatured   string `json:"unmatured,omitempty"`
}

// GetBalance returns the wallet balance.
func (d *Daemon) GetBalance(ctx context.Context) (*GetBalanceResult, error) {
	var resp GetBalanceResult
	err := d.conn.request(ctx, "getbalance", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// HistoryItem is one wallet transaction from onchain_history. Electrum 4
// sends bc_value, older daemons value.
type HistoryItem struct {
	TxID          string `json:"txid"`
	Height        int64  `json:"height"`
	Confirmations int64  `json:"confirmations"`
	Timestamp     int64  `json:"timestamp"`
	Incoming      bool   `json:"incoming"`
	Label         string `json:"label"`
	BcValue       string `json:"bc_value"`
	BcBalance     string `json:"bc_balance"`
	Value         string `json:"value"`
	FeeSat        int64  `json:"fee_sat"`
}

type HistoryResult struct {
	Transactions []*HistoryItem `json:"transactions"`
}

// OnchainHistory returns the wallet on-chain history, oldest first.
func (d *Daemon) OnchainHistory(ctx context.Context) (*HistoryResult, error) {
	var raw json.RawMessage
	err := d.conn.request(ctx, "onchain_history", nil, &raw)
	if err != nil {
		return nil, err
	}
	// Some daemon versions return the transactions list bare.
	var resp HistoryResult
	if len(raw) > 0 && raw[0] == '[' {
		err = json.Unmarshal(raw, &resp.Transactions)
	} else {
		err = json.Unmarshal(raw, &resp)
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ----------------------------------------------------------------------------
// Spending
// ----------------------------------------------------------------------------

type payToObject struct {
	Hex      string `json:"hex"`
	Complete bool   `json:"complete"`
}

// PayTo asks the daemon to create and sign a transaction paying amount to
// address. amount is a BTC float or PayMaxAmount. fee is in BTC and only
// sent when positive so the daemon picks its own fee otherwise. The signed
// transaction is returned hex encoded and is NOT broadcast.
func (d *Daemon) PayTo(ctx context.Context, address string, amount any, fee float64) (string, error) {
	args := positional{address, amount}
	if fee > 0 {
		args = append(args, fee)
	}

	var raw json.RawMessage
	err := d.conn.request(ctx, "payto", args, &raw)
	if err != nil {
		return "", err
	}

	// Electrum 4 returns the hex string, 3.x an object.
	var hexTx string
	if err = json.Unmarshal(raw, &hexTx); err == nil {
		return hexTx, nil
	}
	var obj payToObject
	if err = json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	if obj.Hex == "" {
		return "", ErrNoResult
	}
	return obj.Hex, nil
}

// Broadcast broadcasts a raw tx as a hexadecimal string to the network. The
// tx hash is returned as a hexadecimal string.
func (d *Daemon) Broadcast(ctx context.Context, rawTx string) (string, error) {
	var txid string
	err := d.conn.request(ctx, "broadcast", positional{rawTx}, &txid)
	if err != nil {
		return "", err
	}
	return txid, nil
}

// GetFeeRate returns the daemon fee rate in sat/kvB for a fee method
// ("static", "eta" or "mempool") and a level between 0 and 1. An empty
// feeMethod lets the daemon use its configured one.
func (d *Daemon) GetFeeRate(ctx context.Context, feeMethod string, feeLevel float64) (int64, error) {
	var args any
	if feeMethod != "" {
		args = positional{feeMethod, feeLevel}
	}
	var rate float64
	err := d.conn.request(ctx, "getfeerate", args, &rate)
	if err != nil {
		return 0, err
	}
	if rate < 0 {
		return 0, errors.New("daemon cannot estimate a feerate")
	}
	return int64(rate), nil
}

// ----------------------------------------------------------------------------
// Payment requests
// ----------------------------------------------------------------------------

// RequestResult is a payment request as the daemon describes it. Fields
// differ a little between daemon versions; unknown ones are ignored.
type RequestResult struct {
	Address      string `json:"address"`
	URI          string `json:"URI"`
	Status       int    `json:"status"`
	StatusString string `json:"status_str"`
	AmountBTC    string `json:"amount_BTC"`
	AmountSat    int64  `json:"amount_sat"`
	Message      string `json:"message"`
	Memo         string `json:"memo"`
	Timestamp    int64  `json:"timestamp"`
	Expiration   int64  `json:"expiration"`
	Expiry       int64  `json:"expiry"`
	RequestID    string `json:"request_id"`
}

// AddRequest creates a payment request for amount BTC. memo is sent when
// non-empty and expiry (seconds) when positive.
func (d *Daemon) AddRequest(ctx context.Context, amount float64, memo string, expiry int64) (*RequestResult, error) {
	args := positional{amount}
	switch {
	case expiry > 0:
		args = append(args, memo, expiry)
	case memo != "":
		args = append(args, memo)
	}

	var resp RequestResult
	err := d.conn.request(ctx, "add_request", args, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRequest returns the payment request for address.
func (d *Daemon) GetRequest(ctx context.Context, address string) (*RequestResult, error) {
	var resp RequestResult
	err := d.conn.request(ctx, "getrequest", positional{strings.TrimSpace(address)}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRequests lists the payment requests the wallet knows about.
func (d *Daemon) ListRequests(ctx context.Context) ([]*RequestResult, error) {
	var resp []*RequestResult
	err := d.conn.request(ctx, "list_requests", nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
