package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/cast"
)

// credentialsRecheck is how long a read of the Electrum config file is
// trusted before its mtime is checked again.
const credentialsRecheck = 30 * time.Second

// ElectrumConfig holds the rpc settings found in Electrum's own config file.
// Electrum writes rpcuser and rpcpassword there the first time the daemon
// starts.
type ElectrumConfig struct {
	RPCUser     string
	RPCPassword string
	RPCHost     string
	RPCPort     int
}

// DefaultElectrumConfigPath returns the location of the Electrum config file
// for a network: "" or "mainnet", "testnet", "regtest", "simnet", "signet".
func DefaultElectrumConfigPath(net string) string {
	dir := btcutil.AppDataDir("electrum", false)
	switch net {
	case "", "mainnet":
	default:
		dir = filepath.Join(dir, net)
	}
	return filepath.Join(dir, "config")
}

// ReadElectrumConfig parses the Electrum config file at path. rpcport is a
// number or a string depending on how it was set.
func ReadElectrumConfig(path string) (*ElectrumConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err = json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("malformed electrum config %s: %w", path, err)
	}
	ec := &ElectrumConfig{
		RPCUser:     cast.ToString(raw["rpcuser"]),
		RPCPassword: cast.ToString(raw["rpcpassword"]),
		RPCHost:     cast.ToString(raw["rpchost"]),
	}
	if p, ok := raw["rpcport"]; ok {
		port, err := cast.ToIntE(p)
		if err != nil {
			return nil, fmt.Errorf("bad rpcport in %s: %w", path, err)
		}
		ec.RPCPort = port
	}
	if ec.RPCUser == "" || ec.RPCPassword == "" {
		return nil, errors.New("no rpc credentials in electrum config")
	}
	return ec, nil
}

// Apply copies whatever the Electrum config sets into cfg.
func (ec *ElectrumConfig) Apply(cfg *DaemonConfig) {
	cfg.User = ec.RPCUser
	cfg.Password = ec.RPCPassword
	if ec.RPCHost != "" {
		cfg.Host = ec.RPCHost
	}
	if ec.RPCPort != 0 {
		cfg.Port = ec.RPCPort
	}
}

// CredentialsRetriever returns a func that yields the current Electrum
// config. The file is re-read only when its mtime changes and at most every
// 30 seconds. The daemon rewrites it on start, so a long running client picks
// up a new rpcpassword without a restart.
func CredentialsRetriever(path string) func() (*ElectrumConfig, error) {
	return credentialsRetriever(path, credentialsRecheck)
}

func credentialsRetriever(path string, recheck time.Duration) func() (*ElectrumConfig, error) {
	var mtx sync.Mutex
	lastCheckTime := time.Time{}
	lastModTime := time.Time{}

	var cur *ElectrumConfig
	var curError error

	doUpdate := func() {
		if !lastCheckTime.IsZero() && time.Now().Before(lastCheckTime.Add(recheck)) {
			return
		}

		lastCheckTime = time.Now()

		st, err := os.Stat(path)
		if err != nil {
			curError = err
			lastModTime = time.Time{}
			return
		}

		modTime := st.ModTime()
		if !modTime.Equal(lastModTime) {
			lastModTime = modTime
			cur, curError = ReadElectrumConfig(path)
		}
	}

	return func() (*ElectrumConfig, error) {
		mtx.Lock()
		defer mtx.Unlock()
		doUpdate()
		return cur, curError
	}
}
