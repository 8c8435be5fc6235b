package btc

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/wire"
)

var ErrBadTx = errors.New("bad transaction")

// /////////////////////////////////////////////////////////////////////////////
// Helpers
// ///////

func newWireTx(b []byte, checkIo bool) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	r := bytes.NewBuffer(b)
	if err := tx.Deserialize(r); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("tx: %d trailing bytes", r.Len())
	}
	if checkIo {
		if len(tx.TxIn) == 0 {
			return nil, errors.New("tx: no inputs")
		}
		if len(tx.TxOut) == 0 {
			return nil, errors.New("tx: no outputs")
		}
	}
	return tx, nil
}

// decodeRawTx parses a hex encoded raw transaction.
func decodeRawTx(rawTx string) (*wire.MsgTx, error) {
	b, err := hex.DecodeString(strings.TrimSpace(rawTx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTx, err)
	}
	tx, err := newWireTx(b, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTx, err)
	}
	return tx, nil
}
