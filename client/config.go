package client

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/net/proxy"

	"github.com/dev-warrior777/go-electrum-rpc/daemon"
	"github.com/dev-warrior777/go-electrum-rpc/wallet"
)

const (
	appName = "goele-rpc"

	DefaultRequestCacheTTL  = 5 * time.Second
	DefaultRequestCacheSize = 1000
	DefaultFeeMethod        = "eta"
)

// ClientConfig configures a client of one Electrum wallet daemon. Tagged
// fields can be set from the command line.
type ClientConfig struct {
	// Electrum daemon rpc server
	RPCHost string `long:"rpchost" description:"Electrum daemon rpc host"`
	RPCPort int    `long:"rpcport" description:"Electrum daemon rpc port"`
	RPCUser string `short:"u" long:"rpcuser" description:"Electrum daemon rpc username"`
	RPCPass string `short:"P" long:"rpcpass" default-mask:"-" description:"Electrum daemon rpc password"`

	// ElectrumConfig is the path to Electrum's own config file. It is read
	// for credentials when RPCUser is not set.
	ElectrumConfig string `long:"electrumconfig" description:"Path to the Electrum config file holding rpcuser/rpcpassword"`

	UseTLS         bool          `long:"tls" description:"Connect to the daemon over https"`
	TLSSkipVerify  bool          `long:"tlsskipverify" description:"Do not verify the daemon certificate (testing only)"`
	RequestTimeout time.Duration `long:"timeout" description:"Timeout for a single daemon request"`

	// A Tor proxy host:port. Connections use stream isolation.
	TorProxy string `long:"torproxy" description:"Connect through a Tor socks5 proxy host:port"`

	// Any other dialer. Ignored when TorProxy is set.
	Proxy proxy.Dialer `no-flag:"true"`

	// Network selects Params.
	Network string `long:"network" choice:"mainnet" choice:"testnet" choice:"regtest" choice:"simnet" choice:"signet" description:"Bitcoin network of the daemon wallet"`

	// Network parameters, used for local address checks.
	Params *chaincfg.Params `no-flag:"true"`

	// The user-agent sent to the daemon
	UserAgent string `long:"useragent" description:"User-Agent header sent with every request"`

	// Location of the data directory
	DataDir string `long:"datadir" description:"Directory for the local payment request journal"`

	// NoJournal disables the sqlite journal of created payment requests.
	NoJournal bool `long:"nojournal" description:"Do not journal created payment requests"`

	// An implementation of the Datastore interface. When nil and NoJournal
	// is false a sqlite datastore is opened in DataDir.
	DB wallet.Datastore `no-flag:"true"`

	// Payment request cache
	RequestCacheTTL  time.Duration `long:"requestcachettl" description:"How long a fetched payment request is served from cache"`
	RequestCacheSize int           `long:"requestcachesize" description:"Maximum number of cached payment requests"`

	// RequestExpiry is sent with add_request when positive.
	RequestExpiry time.Duration `long:"requestexpiry" description:"Expiry of new payment requests (0 lets the daemon decide)"`

	// Fee estimation method passed to getfeerate: static, eta or mempool.
	FeeMethod string `long:"feemethod" choice:"static" choice:"eta" choice:"mempool" description:"Fee estimation method"`

	// The highest allowable fee-per-byte
	MaxFee float64 `long:"maxfee" description:"Highest fee rate in sat/vB returned by fee estimation"`

	// If not testing do not overwrite existing journal files
	Testing bool `no-flag:"true"`
}

func NewDefaultConfig() *ClientConfig {
	return &ClientConfig{
		RPCHost:          daemon.DefaultHost,
		RPCPort:          daemon.DefaultPort,
		RequestTimeout:   daemon.DefaultRequestTimeout,
		Network:          "mainnet",
		Params:           &chaincfg.MainNetParams,
		UserAgent:        appName,
		DataDir:          btcutil.AppDataDir(appName, false),
		DB:               nil, // concrete impl
		RequestCacheTTL:  DefaultRequestCacheTTL,
		RequestCacheSize: DefaultRequestCacheSize,
		FeeMethod:        DefaultFeeMethod,
	}
}

// NetParams returns the chain params for a network name.
func NetParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}

// ApplyNetwork sets Params from Network.
func (cc *ClientConfig) ApplyNetwork() error {
	params, err := NetParams(cc.Network)
	if err != nil {
		return err
	}
	cc.Params = params
	return nil
}

// MakeDaemonConfig builds the daemon connection config. Without an explicit
// rpc user the credentials are taken from the Electrum config file, the
// default one for the network when ElectrumConfig is empty.
func (cc *ClientConfig) MakeDaemonConfig() (*daemon.DaemonConfig, error) {
	dc := daemon.DaemonConfig{
		Host:           cc.RPCHost,
		Port:           cc.RPCPort,
		User:           cc.RPCUser,
		Password:       cc.RPCPass,
		UseTLS:         cc.UseTLS,
		TLSSkipVerify:  cc.TLSSkipVerify,
		RequestTimeout: cc.RequestTimeout,
		TorProxy:       cc.TorProxy,
		Proxy:          cc.Proxy,
		UserAgent:      cc.UserAgent,
	}
	if dc.User != "" {
		return &dc, nil
	}

	path := cc.ElectrumConfig
	if path == "" {
		path = daemon.DefaultElectrumConfigPath(wallet.NetName(cc.Params))
	}
	ec, err := daemon.ReadElectrumConfig(path)
	if err != nil {
		return nil, fmt.Errorf("no rpc user given and cannot read %s: %w", path, err)
	}
	ec.Apply(&dc)
	// the daemon may rewrite rpcpassword when it restarts
	dc.Credentials = daemon.CredentialsRetriever(path)
	return &dc, nil
}

func GetConfigPath() (string, error) {
	userCfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	appPath := filepath.Join(userCfgDir, appName)
	err = os.MkdirAll(appPath, os.ModeDir|0777)
	if err != nil {
		return "", err
	}
	return appPath, nil
}
