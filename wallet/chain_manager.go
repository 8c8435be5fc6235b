package wallet

import "github.com/btcsuite/btcd/chaincfg"

// NetName maps network params to the network names Electrum uses for its
// data directories.
func NetName(params *chaincfg.Params) string {
	if params == nil {
		return "mainnet"
	}
	switch params.Name {
	case "testnet", "testnet3":
		return "testnet"
	case "regtest":
		return "regtest"
	case "simnet":
		return "simnet"
	case "signet":
		return "signet"
	default:
		return "mainnet"
	}
}
