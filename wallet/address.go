package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

var ErrInvalidAddress = errors.New("invalid address")

// CheckAddress decodes addr for params. A nil params skips the check; the
// daemon stays the authority either way.
func CheckAddress(addr string, params *chaincfg.Params) error {
	if addr == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if params == nil {
		return nil
	}
	a, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if !a.IsForNet(params) {
		return fmt.Errorf("%w: %s is not for %s", ErrInvalidAddress, addr, params.Name)
	}
	return nil
}
