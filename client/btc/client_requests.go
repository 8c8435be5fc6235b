package btc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/go-zoox/logger"

	"github.com/dev-warrior777/go-electrum-rpc/daemon"
	"github.com/dev-warrior777/go-electrum-rpc/wallet"
)

// defaultPaymentPoll is the WaitForPayment poll interval when none is given.
const defaultPaymentPoll = 5 * time.Second

// CreatePaymentRequest has the daemon wallet create a BIP21 request for
// amount. The new request is cached and journaled.
func (ec *BtcElectrumClient) CreatePaymentRequest(ctx context.Context, amount btcutil.Amount, memo string) (*wallet.PaymentRequest, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: request amount %d sat", wallet.ErrInvalidAmount, amount)
	}
	expiry := int64(ec.ClientConfig.RequestExpiry / time.Second)
	res, err := ec.Daemon.AddRequest(ctx, amount.ToBTC(), memo, expiry)
	if err != nil {
		return nil, err
	}
	pr, err := paymentRequestFromResult(res)
	if err != nil {
		return nil, err
	}
	if pr.Amount == 0 {
		pr.Amount = amount
		pr.AmountBTC = wallet.FormatBtc(amount)
	}
	if pr.Memo == "" {
		pr.Memo = memo
	}

	ec.requests.put(pr)
	if ec.journal != nil {
		ec.logJournalErr(pr.Address, ec.journal.Put(pr))
	}
	logger.Info("created payment request %s for %s", pr.Address, amount)
	return pr, nil
}

// GetPaymentRequest returns the request for address, from the cache when a
// fresh copy is held.
func (ec *BtcElectrumClient) GetPaymentRequest(ctx context.Context, address string) (*wallet.PaymentRequest, error) {
	address = strings.TrimSpace(address)
	if pr := ec.requests.get(address); pr != nil {
		return pr, nil
	}
	return ec.FetchPaymentRequest(ctx, address)
}

// FetchPaymentRequest always asks the daemon and refreshes the cache. Local
// metadata is carried over from the journal.
func (ec *BtcElectrumClient) FetchPaymentRequest(ctx context.Context, address string) (*wallet.PaymentRequest, error) {
	address = strings.TrimSpace(address)
	res, err := ec.Daemon.GetRequest(ctx, address)
	if err != nil {
		return nil, err
	}
	pr, err := paymentRequestFromResult(res)
	if err != nil {
		return nil, err
	}

	ec.metaMtx.Lock()
	defer ec.metaMtx.Unlock()
	if ec.journal != nil {
		if j, err := ec.journal.Get(pr.Address); err == nil {
			pr.Metadata = j.Metadata
			ec.logJournalErr(pr.Address, ec.journal.UpdateStatus(pr.Address, pr.Status, pr.StatusString))
		} else if !errors.Is(err, wallet.ErrRequestNotFound) {
			ec.logJournalErr(pr.Address, err)
		}
	}
	ec.requests.put(pr)
	return pr, nil
}

// SetPaymentRequestMetadata attaches a local key/value to the request for
// address and journals it. Metadata is never sent to the daemon. A request
// not created through this client is fetched and journaled first.
func (ec *BtcElectrumClient) SetPaymentRequestMetadata(ctx context.Context, address, key, value string) (*wallet.PaymentRequest, error) {
	if ec.journal == nil {
		return nil, ErrNoJournal
	}
	address = strings.TrimSpace(address)
	if key == "" {
		return nil, errors.New("empty metadata key")
	}

	_, err := ec.journal.Get(address)
	if errors.Is(err, wallet.ErrRequestNotFound) {
		if err = ec.journalFromDaemon(ctx, address); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	ec.metaMtx.Lock()
	defer ec.metaMtx.Unlock()
	pr, err := ec.journal.Get(address)
	if err != nil {
		return nil, err
	}
	pr.AddMetadata(key, value)
	if err = ec.journal.UpdateMetadata(pr.Address, pr.Metadata); err != nil {
		return nil, err
	}
	ec.requests.setMetadata(pr.Address, pr.Metadata)
	return pr, nil
}

// journalFromDaemon journals a request the daemon knows but this client did
// not create.
func (ec *BtcElectrumClient) journalFromDaemon(ctx context.Context, address string) error {
	res, err := ec.Daemon.GetRequest(ctx, address)
	if err != nil {
		return err
	}
	pr, err := paymentRequestFromResult(res)
	if err != nil {
		return err
	}
	ec.metaMtx.Lock()
	defer ec.metaMtx.Unlock()
	if _, err = ec.journal.Get(pr.Address); !errors.Is(err, wallet.ErrRequestNotFound) {
		return err
	}
	return ec.journal.Put(pr)
}

// ListPaymentRequests lists all requests of the daemon wallet.
func (ec *BtcElectrumClient) ListPaymentRequests(ctx context.Context) ([]*wallet.PaymentRequest, error) {
	res, err := ec.Daemon.ListRequests(ctx)
	if err != nil {
		return nil, err
	}
	meta := make(map[string]map[string]string)
	if ec.journal != nil {
		journaled, err := ec.journal.GetAll()
		if err != nil {
			logger.Warn("list_requests: journal: %v", err)
		}
		for _, j := range journaled {
			meta[j.Address] = j.Metadata
		}
	}
	prs := make([]*wallet.PaymentRequest, 0, len(res))
	for _, r := range res {
		pr, err := paymentRequestFromResult(r)
		if err != nil {
			logger.Warn("list_requests: skipping request: %v", err)
			continue
		}
		pr.Metadata = meta[pr.Address]
		prs = append(prs, pr)
	}
	return prs, nil
}

// JournalRequests returns the requests this client created, newest first.
func (ec *BtcElectrumClient) JournalRequests() ([]*wallet.PaymentRequest, error) {
	if ec.journal == nil {
		return nil, ErrNoJournal
	}
	return ec.journal.GetAll()
}

// WaitForPayment polls the daemon until the request for address is paid,
// expires or ctx is done. A request past its expiration counts as expired
// even while the daemon still reports it unpaid. An expired request is
// returned together with ErrRequestExpired.
func (ec *BtcElectrumClient) WaitForPayment(ctx context.Context, address string, poll time.Duration) (*wallet.PaymentRequest, error) {
	if poll <= 0 {
		poll = defaultPaymentPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		pr, err := ec.FetchPaymentRequest(ctx, address)
		if err != nil {
			return nil, err
		}
		if pr.Status == wallet.PaymentPaid {
			return pr, nil
		}
		if pr.IsExpired(time.Now()) {
			return pr, ErrRequestExpired
		}
		logger.Debug("payment request %s: %s", pr.Address, pr.Status)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return pr, ctx.Err()
		}
	}
}

func paymentRequestFromResult(r *daemon.RequestResult) (*wallet.PaymentRequest, error) {
	if r == nil || r.Address == "" {
		return nil, fmt.Errorf("payment request without address: %w", daemon.ErrNoResult)
	}
	pr := &wallet.PaymentRequest{
		Address:      r.Address,
		URI:          r.URI,
		StatusString: r.StatusString,
		Status:       wallet.PaymentStatusFromInt(r.Status),
		Memo:         r.Memo,
		Timestamp:    r.Timestamp,
		Expiration:   r.Expiration,
	}
	if pr.Memo == "" {
		pr.Memo = r.Message
	}
	if pr.Expiration == 0 && r.Expiry > 0 && r.Timestamp > 0 {
		pr.Expiration = r.Timestamp + r.Expiry
	}

	switch {
	case r.AmountSat > 0:
		pr.Amount = btcutil.Amount(r.AmountSat)
	case r.AmountBTC != "":
		amt, err := wallet.ParseBtcString(r.AmountBTC)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", r.Address, err)
		}
		pr.Amount = amt
	}
	pr.AmountBTC = r.AmountBTC
	if pr.AmountBTC == "" && pr.Amount > 0 {
		pr.AmountBTC = wallet.FormatBtc(pr.Amount)
	}
	return pr, nil
}
