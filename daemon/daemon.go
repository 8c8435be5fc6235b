package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultHost is where a locally running Electrum daemon listens.
	DefaultHost = "127.0.0.1"

	// DefaultPort is the rpcport the Electrum daemon is usually configured
	// with (`electrum setconfig rpcport 7777`).
	DefaultPort = 7777

	// DefaultRequestTimeout bounds a single request/response round trip.
	DefaultRequestTimeout = 10 * time.Second
)

var (
	ErrBadRequest   = errors.New("daemon rejected the request (400)")
	ErrUnauthorized = errors.New("daemon authentication failed (401)")
	ErrNoResult     = errors.New("daemon returned an empty result")
	ErrIDMismatch   = errors.New("response id does not match request id")
)

type DaemonConfig struct {
	// Host of the Electrum daemon rpc server.
	Host string

	// Port of the Electrum daemon rpc server.
	Port int

	// Basic auth credentials; see `electrum getconfig rpcuser`.
	User     string
	Password string

	// Credentials, when set, is asked for the basic auth credentials before
	// every request and overrides User and Password. See CredentialsRetriever.
	Credentials func() (*ElectrumConfig, error)

	// UseTLS selects https. Electrum does not serve TLS by default.
	UseTLS bool

	// TLSSkipVerify skips certificate verification. Testing only.
	TLSSkipVerify bool

	// RequestTimeout bounds each request. Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration

	// TorProxy is the host:port of a socks5 Tor proxy. Each connection uses
	// stream isolation.
	TorProxy string

	// Proxy is any other dialer to route daemon connections through. Ignored
	// when TorProxy is set.
	Proxy proxy.Dialer

	// The user-agent sent with every request.
	UserAgent string
}

// Addr returns host:port with defaults applied.
func (c *DaemonConfig) Addr() string {
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// URL returns the rpc endpoint of the daemon.
func (c *DaemonConfig) URL() string {
	scheme := "http"
	if c.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/", scheme, c.Addr())
}

// ElectrumDaemon is the set of Electrum wallet daemon commands this module
// speaks. Results are returned as the daemon sends them; mapping to wallet
// models happens in the client.
type ElectrumDaemon interface {
	Version(ctx context.Context) (string, error)

	IsMine(ctx context.Context, address string) (bool, error)
	ValidateAddress(ctx context.Context, address string) (bool, error)
	ListAddresses(ctx context.Context) ([]string, error)
	CreateNewAddress(ctx context.Context) (string, error)
	GetUnusedAddress(ctx context.Context) (string, error)

	GetBalance(ctx context.Context) (*GetBalanceResult, error)
	OnchainHistory(ctx context.Context) (*HistoryResult, error)

	PayTo(ctx context.Context, address string, amount any, fee float64) (string, error)
	Broadcast(ctx context.Context, rawTx string) (string, error)
	GetFeeRate(ctx context.Context, feeMethod string, feeLevel float64) (int64, error)

	AddRequest(ctx context.Context, amount float64, memo string, expiry int64) (*RequestResult, error)
	GetRequest(ctx context.Context, address string) (*RequestResult, error)
	ListRequests(ctx context.Context) ([]*RequestResult, error)
}

// Ensure Daemon implements ElectrumDaemon.
var _ ElectrumDaemon = (*Daemon)(nil)

// Daemon is a connection to one Electrum wallet daemon.
type Daemon struct {
	cfg  *DaemonConfig
	conn *daemonConn
}

// NewDaemon makes a Daemon. No network traffic happens until the first
// request.
func NewDaemon(cfg *DaemonConfig) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("nil daemon config")
	}
	conn, err := newDaemonConn(cfg)
	if err != nil {
		return nil, err
	}
	return &Daemon{
		cfg:  cfg,
		conn: conn,
	}, nil
}

func (d *Daemon) Config() *DaemonConfig {
	return d.cfg
}

// Request sends an arbitrary daemon command. args is positional ([]any),
// named (map or struct) or nil.
func (d *Daemon) Request(ctx context.Context, method string, args any, result any) error {
	return d.conn.request(ctx, method, args, result)
}
