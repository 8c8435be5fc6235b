package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid bitcoin amount")

	satPerBtc = decimal.NewFromInt(btcutil.SatoshiPerBitcoin)
)

// BtcToSat converts a BTC value to satoshis, rounding to the nearest
// satoshi. NaN, infinities and values beyond the 21M supply are rejected.
func BtcToSat(btc float64) (btcutil.Amount, error) {
	amt, err := btcutil.NewAmount(btc)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, btc)
	}
	return amt, nil
}

// SatToBtc converts satoshis to BTC.
func SatToBtc(sat btcutil.Amount) float64 {
	return sat.ToBTC()
}

// ParseBtcString converts a decimal BTC string such as the daemon sends
// ("0.00120000", "-1.5") to satoshis without going through a float. An empty
// string is zero.
func ParseBtcString(s string) (btcutil.Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	sat := d.Mul(satPerBtc)
	if !sat.IsInteger() {
		return 0, fmt.Errorf("%w: %q has sub-satoshi precision", ErrInvalidAmount, s)
	}
	if sat.Abs().GreaterThan(decimal.NewFromInt(btcutil.MaxSatoshi)) {
		return 0, fmt.Errorf("%w: %q exceeds max supply", ErrInvalidAmount, s)
	}
	return btcutil.Amount(sat.IntPart()), nil
}

// FormatBtc renders satoshis as the fixed 8 decimal BTC string the daemon
// accepts.
func FormatBtc(sat btcutil.Amount) string {
	return decimal.New(int64(sat), -8).StringFixed(8)
}
