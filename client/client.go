package client

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/dev-warrior777/go-electrum-rpc/wallet"
)

const GoeleVersion = "0.1.0"

// ElectrumClient is the public surface over one Electrum wallet daemon.
type ElectrumClient interface {
	GetConfig() *ClientConfig
	Ping(ctx context.Context) (string, error)
	Close() error

	// Addresses
	IsMine(ctx context.Context, address string) (bool, error)
	IsValid(ctx context.Context, address string) (bool, error)
	ListAddresses(ctx context.Context) ([]string, error)
	CreateNewAddress(ctx context.Context) (string, error)
	GetUnusedAddress(ctx context.Context) (string, error)

	// Balance & history
	GetBalance(ctx context.Context, confirmedOnly bool) (*wallet.Balance, error)
	GetHistory(ctx context.Context, minConfirms int64) ([]*wallet.Transaction, error)

	// Spending
	PayTo(ctx context.Context, address string, amount, fee btcutil.Amount) (string, error)
	PayMax(ctx context.Context, address string, fee btcutil.Amount) (string, error)
	Broadcast(ctx context.Context, rawTx string) (string, error)
	GetFeeRate(ctx context.Context, feeLevel float64) (float64, error)

	// Payment requests
	CreatePaymentRequest(ctx context.Context, amount btcutil.Amount, memo string) (*wallet.PaymentRequest, error)
	GetPaymentRequest(ctx context.Context, address string) (*wallet.PaymentRequest, error)
	FetchPaymentRequest(ctx context.Context, address string) (*wallet.PaymentRequest, error)
	ListPaymentRequests(ctx context.Context) ([]*wallet.PaymentRequest, error)
	JournalRequests() ([]*wallet.PaymentRequest, error)
	SetPaymentRequestMetadata(ctx context.Context, address, key, value string) (*wallet.PaymentRequest, error)
	WaitForPayment(ctx context.Context, address string, poll time.Duration) (*wallet.PaymentRequest, error)

	// Units
	BtcToSat(btc float64) (btcutil.Amount, error)
	SatToBtc(sat btcutil.Amount) float64
}
