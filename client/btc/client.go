package btc

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/go-zoox/logger"

	"github.com/dev-warrior777/go-electrum-rpc/client"
	"github.com/dev-warrior777/go-electrum-rpc/daemon"
	"github.com/dev-warrior777/go-electrum-rpc/wallet"
	"github.com/dev-warrior777/go-electrum-rpc/wallet/db"
)

var (
	ErrFeeTooHigh     = errors.New("fee too high")
	ErrRequestExpired = errors.New("payment request expired")
	ErrNoJournal      = errors.New("payment request journal disabled")
)

// Ensure BtcElectrumClient implements client.ElectrumClient.
var _ client.ElectrumClient = (*BtcElectrumClient)(nil)

// BtcElectrumClient talks to one Electrum wallet daemon on behalf of a
// bitcoin wallet.
type BtcElectrumClient struct {
	ClientConfig *client.ClientConfig
	Daemon       daemon.ElectrumDaemon

	fees     *wallet.FeeProvider
	requests *requestCache

	// metaMtx serializes metadata writes with cache refreshes
	metaMtx sync.Mutex

	// journal is nil when disabled
	journal wallet.Requests
	db      wallet.Datastore
	ownDB   bool
}

// NewBtcElectrumClient connects a client to the daemon configured in cfg.
// Call Close when done.
func NewBtcElectrumClient(cfg *client.ClientConfig) (*BtcElectrumClient, error) {
	dc, err := cfg.MakeDaemonConfig()
	if err != nil {
		return nil, err
	}
	d, err := daemon.NewDaemon(dc)
	if err != nil {
		return nil, err
	}
	return NewBtcElectrumClientWithDaemon(cfg, d)
}

// NewBtcElectrumClientWithDaemon makes a client over any ElectrumDaemon.
func NewBtcElectrumClientWithDaemon(cfg *client.ClientConfig, d daemon.ElectrumDaemon) (*BtcElectrumClient, error) {
	if cfg == nil {
		return nil, errors.New("nil client config")
	}
	if d == nil {
		return nil, errors.New("nil daemon")
	}

	ec := &BtcElectrumClient{
		ClientConfig: cfg,
		Daemon:       d,
		fees:         wallet.NewFeeProvider(d, cfg.FeeMethod, cfg.MaxFee),
	}

	// Select request journal datastore
	switch {
	case cfg.DB != nil:
		ec.db = cfg.DB
	case !cfg.NoJournal:
		if err := os.MkdirAll(cfg.DataDir, os.ModeDir|0700); err != nil {
			return nil, err
		}
		sqliteDatastore, err := db.Create(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		ec.db = sqliteDatastore
		ec.ownDB = true
	}
	if ec.db != nil {
		ec.journal = ec.db.Requests()
	}

	ttl := cfg.RequestCacheTTL
	if ttl <= 0 {
		ttl = client.DefaultRequestCacheTTL
	}
	size := cfg.RequestCacheSize
	if size <= 0 {
		size = client.DefaultRequestCacheSize
	}
	ec.requests = newRequestCache(ttl, size)
	ec.requests.start()

	return ec, nil
}

//////////////////////////////////////////////////////////////////////////////
// Interface
////////////

func (ec *BtcElectrumClient) GetConfig() *client.ClientConfig {
	return ec.ClientConfig
}

// Ping returns the daemon version.
func (ec *BtcElectrumClient) Ping(ctx context.Context) (string, error) {
	return ec.Daemon.Version(ctx)
}

// Close stops the request cache and closes a journal opened by the client.
func (ec *BtcElectrumClient) Close() error {
	ec.requests.stop()
	if ec.ownDB && ec.db != nil {
		err := ec.db.Close()
		ec.db = nil
		ec.journal = nil
		return err
	}
	return nil
}

func (ec *BtcElectrumClient) BtcToSat(btc float64) (btcutil.Amount, error) {
	return wallet.BtcToSat(btc)
}

func (ec *BtcElectrumClient) SatToBtc(sat btcutil.Amount) float64 {
	return wallet.SatToBtc(sat)
}

func (ec *BtcElectrumClient) logJournalErr(address string, err error) {
	if err != nil && !errors.Is(err, wallet.ErrRequestNotFound) {
		logger.Warn("payment request journal %s: %v", address, err)
	}
}
