package btc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/go-zoox/logger"

	"github.com/dev-warrior777/go-electrum-rpc/daemon"
	"github.com/dev-warrior777/go-electrum-rpc/wallet"
)

//////////////////////////////////////////////////////////////////////////////
// Addresses
////////////

// IsMine checks if the address belongs to the daemon wallet.
func (ec *BtcElectrumClient) IsMine(ctx context.Context, address string) (bool, error) {
	return ec.Daemon.IsMine(ctx, strings.TrimSpace(address))
}

// IsValid asks the daemon whether address is valid on its network.
func (ec *BtcElectrumClient) IsValid(ctx context.Context, address string) (bool, error) {
	return ec.Daemon.ValidateAddress(ctx, strings.TrimSpace(address))
}

func (ec *BtcElectrumClient) ListAddresses(ctx context.Context) ([]string, error) {
	return ec.Daemon.ListAddresses(ctx)
}

func (ec *BtcElectrumClient) CreateNewAddress(ctx context.Context) (string, error) {
	return ec.Daemon.CreateNewAddress(ctx)
}

func (ec *BtcElectrumClient) GetUnusedAddress(ctx context.Context) (string, error) {
	return ec.Daemon.GetUnusedAddress(ctx)
}

//////////////////////////////////////////////////////////////////////////////
// Balance & history
////////////////////

// GetBalance returns the wallet balance. With confirmedOnly only the
// confirmed part is filled in.
func (ec *BtcElectrumClient) GetBalance(ctx context.Context, confirmedOnly bool) (*wallet.Balance, error) {
	res, err := ec.Daemon.GetBalance(ctx)
	if err != nil {
		return nil, err
	}
	var bal wallet.Balance
	bal.Confirmed, err = wallet.ParseBtcString(res.Confirmed)
	if err != nil {
		return nil, fmt.Errorf("confirmed balance: %w", err)
	}
	if confirmedOnly {
		return &bal, nil
	}
	bal.Unconfirmed, err = wallet.ParseBtcString(res.Unconfirmed)
	if err != nil {
		return nil, fmt.Errorf("unconfirmed balance: %w", err)
	}
	bal.Unmatured, err = wallet.ParseBtcString(res.Unmatured)
	if err != nil {
		return nil, fmt.Errorf("unmatured balance: %w", err)
	}
	return &bal, nil
}

// GetHistory returns the wallet transactions with at least minConfirms
// confirmations, oldest first.
func (ec *BtcElectrumClient) GetHistory(ctx context.Context, minConfirms int64) ([]*wallet.Transaction, error) {
	res, err := ec.Daemon.OnchainHistory(ctx)
	if err != nil {
		return nil, err
	}
	txs := make([]*wallet.Transaction, 0, len(res.Transactions))
	for _, item := range res.Transactions {
		if item == nil || item.Confirmations < minConfirms {
			continue
		}
		tx, err := transactionFromHistory(item)
		if err != nil {
			return nil, fmt.Errorf("history tx %s: %w", item.TxID, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func transactionFromHistory(item *daemon.HistoryItem) (*wallet.Transaction, error) {
	value := item.BcValue
	if value == "" {
		value = item.Value
	}
	amt, err := wallet.ParseBtcString(value)
	if err != nil {
		return nil, err
	}
	bal, err := wallet.ParseBtcString(item.BcBalance)
	if err != nil {
		return nil, err
	}
	tx := &wallet.Transaction{
		TxID:          item.TxID,
		Height:        item.Height,
		Confirmations: item.Confirmations,
		Value:         amt,
		Balance:       bal,
		Incoming:      item.Incoming,
		Label:         item.Label,
		Fee:           btcutil.Amount(item.FeeSat),
	}
	if item.Timestamp > 0 {
		tx.Timestamp = time.Unix(item.Timestamp, 0)
	}
	return tx, nil
}

//////////////////////////////////////////////////////////////////////////////
// Spending
///////////

// PayTo asks the daemon for a signed transaction paying amount to address.
// A zero fee lets the daemon choose. The returned hex tx is not broadcast.
func (ec *BtcElectrumClient) PayTo(ctx context.Context, address string, amount, fee btcutil.Amount) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("%w: pay amount %d sat", wallet.ErrInvalidAmount, amount)
	}
	return ec.payTo(ctx, address, amount.ToBTC(), fee)
}

// PayMax is PayTo for the whole wallet balance.
func (ec *BtcElectrumClient) PayMax(ctx context.Context, address string, fee btcutil.Amount) (string, error) {
	return ec.payTo(ctx, address, daemon.PayMaxAmount, fee)
}

func (ec *BtcElectrumClient) payTo(ctx context.Context, address string, amount any, fee btcutil.Amount) (string, error) {
	if fee < 0 {
		return "", fmt.Errorf("%w: fee %d sat", wallet.ErrInvalidAmount, fee)
	}
	if wallet.FeeTooHigh(fee) {
		return "", fmt.Errorf("%w: %s", ErrFeeTooHigh, fee)
	}
	address = strings.TrimSpace(address)
	if err := wallet.CheckAddress(address, ec.ClientConfig.Params); err != nil {
		return "", err
	}
	return ec.Daemon.PayTo(ctx, address, amount, fee.ToBTC())
}

// Broadcast checks that rawTx decodes as a transaction and has the daemon
// broadcast it. The txid is returned.
func (ec *BtcElectrumClient) Broadcast(ctx context.Context, rawTx string) (string, error) {
	tx, err := decodeRawTx(rawTx)
	if err != nil {
		return "", err
	}
	localHash := tx.TxHash()

	txid, err := ec.Daemon.Broadcast(ctx, strings.TrimSpace(rawTx))
	if err != nil {
		return "", err
	}
	hash, err := chainhash.NewHashFromStr(strings.TrimSpace(txid))
	if err != nil {
		return "", fmt.Errorf("daemon returned bad txid %q: %w", txid, err)
	}
	if !hash.IsEqual(&localHash) {
		logger.Warn("broadcast: daemon txid %s differs from local txid %s", hash, localHash)
	}
	return hash.String(), nil
}

// GetFeeRate returns the fee rate in sat/vB for a level between 0.0
// (cheapest) and 1.0 (fastest).
func (ec *BtcElectrumClient) GetFeeRate(ctx context.Context, feeLevel float64) (float64, error) {
	return ec.fees.GetFeePerByte(ctx, feeLevel)
}
