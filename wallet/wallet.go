// Package wallet holds the models an Electrum wallet daemon describes:
// balances, history entries and payment requests, plus amount handling.
package wallet

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
)

// Balance of the wallet in satoshis.
type Balance struct {
	Confirmed   btcutil.Amount
	Unconfirmed btcutil.Amount
	Unmatured   btcutil.Amount
}

// Total is the sum of all parts of the balance.
func (b *Balance) Total() btcutil.Amount {
	return b.Confirmed + b.Unconfirmed + b.Unmatured
}

func (b *Balance) String() string {
	return "Balance{confirmed=" + b.Confirmed.String() +
		", unconfirmed=" + b.Unconfirmed.String() +
		", unmatured=" + b.Unmatured.String() + "}"
}

// Transaction is one entry of the wallet on-chain history. Value is the net
// effect on the wallet and is negative for outgoing transactions.
type Transaction struct {
	TxID          string
	Height        int64
	Confirmations int64
	Timestamp     time.Time
	Value         btcutil.Amount
	Balance       btcutil.Amount
	Incoming      bool
	Label         string
	Fee           btcutil.Amount
}

// PaymentStatus mirrors the request status codes of the Electrum daemon.
type PaymentStatus int

const (
	PaymentUnknown     PaymentStatus = -1
	PaymentCreated     PaymentStatus = 0
	PaymentExpired     PaymentStatus = 1
	PaymentPaid        PaymentStatus = 3
	PaymentUnconfirmed PaymentStatus = 7
)

// PaymentStatusFromInt maps a daemon status code. Codes not listed above,
// including lightning only states, map to PaymentUnknown.
func PaymentStatusFromInt(status int) PaymentStatus {
	switch s := PaymentStatus(status); s {
	case PaymentCreated, PaymentExpired, PaymentPaid, PaymentUnconfirmed:
		return s
	default:
		return PaymentUnknown
	}
}

func (s PaymentStatus) String() string {
	switch s {
	case PaymentCreated:
		return "created"
	case PaymentExpired:
		return "expired"
	case PaymentPaid:
		return "paid"
	case PaymentUnconfirmed:
		return "unconfirmed"
	default:
		return "unknown"
	}
}

// PaymentRequest is a BIP21 payment request held by the daemon wallet.
type PaymentRequest struct {
	Address      string
	URI          string
	StatusString string
	Status       PaymentStatus
	AmountBTC    string
	Amount       btcutil.Amount
	Memo         string
	Timestamp    int64
	Expiration   int64 // unix seconds, 0 for never
	Metadata     map[string]string
}

// AddMetadata attaches a local key/value to the request. Metadata is never
// sent to the daemon.
func (pr *PaymentRequest) AddMetadata(key, value string) {
	if pr.Metadata == nil {
		pr.Metadata = make(map[string]string)
	}
	pr.Metadata[key] = value
}

// Copy returns a deep copy of pr.
func (pr *PaymentRequest) Copy() *PaymentRequest {
	cp := *pr
	if pr.Metadata != nil {
		cp.Metadata = make(map[string]string, len(pr.Metadata))
		for k, v := range pr.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// IsExpired reports whether the request expiration is before now.
func (pr *PaymentRequest) IsExpired(now time.Time) bool {
	if pr.Status == PaymentExpired {
		return true
	}
	return pr.Expiration > 0 && now.Unix() >= pr.Expiration
}
