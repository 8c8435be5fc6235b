package btc

import (
	"errors"
	"sync"
	"time"

	"github.com/go-zoox/logger"
	"github.com/lightninglabs/neutrino/cache"
	"github.com/lightninglabs/neutrino/cache/lru"

	"github.com/dev-warrior777/go-electrum-rpc/wallet"
)

// minPurgeInterval bounds how often the purge loop runs for short TTLs.
const minPurgeInterval = time.Second

// cachedRequest is a payment request and the time it was fetched. Callers
// only ever see copies of req.
type cachedRequest struct {
	req     *wallet.PaymentRequest
	fetched time.Time
}

// Size returns the "size" of an entry.
func (c *cachedRequest) Size() (uint64, error) {
	return 1, nil
}

// requestCache holds recently fetched payment requests keyed by address.
// Entries older than ttl are misses and are swept by a purge loop.
type requestCache struct {
	entries *lru.Cache[string, *cachedRequest]
	ttl     time.Duration
	now     func() time.Time

	wg       sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
}

func newRequestCache(ttl time.Duration, size int) *requestCache {
	if size <= 0 {
		size = 1
	}
	return &requestCache{
		entries: lru.NewCache[string, *cachedRequest](uint64(size)),
		ttl:     ttl,
		now:     time.Now,
		quit:    make(chan struct{}),
	}
}

// start kicks off the purge loop.
func (rc *requestCache) start() {
	rc.wg.Add(1)
	go rc.purgeExpired()
}

// stop halts the purge loop. Safe to call more than once.
func (rc *requestCache) stop() {
	rc.stopOnce.Do(func() {
		close(rc.quit)
	})
	rc.wg.Wait()
}

func (rc *requestCache) purgeExpired() {
	defer rc.wg.Done()

	interval := rc.ttl / 2
	if interval < minPurgeInterval {
		interval = minPurgeInterval
	}
	purgeTicker := time.NewTicker(interval)
	defer purgeTicker.Stop()

	for {
		select {
		case <-purgeTicker.C:
			rc.purge()

		case <-rc.quit:
			return
		}
	}
}

// purge removes all stale entries and returns how many were removed.
func (rc *requestCache) purge() int {
	var stale []string
	rc.entries.Range(func(address string, c *cachedRequest) bool {
		if rc.expired(c) {
			stale = append(stale, address)
		}
		return true
	})
	for _, address := range stale {
		rc.entries.Delete(address)
		logger.Debug("payment request %s removed from cache", address)
	}
	return len(stale)
}

func (rc *requestCache) expired(c *cachedRequest) bool {
	return rc.now().Sub(c.fetched) >= rc.ttl
}

func (rc *requestCache) put(req *wallet.PaymentRequest) {
	if req == nil || req.Address == "" {
		return
	}
	_, err := rc.entries.Put(req.Address, &cachedRequest{
		req:     req.Copy(),
		fetched: rc.now(),
	})
	if err != nil {
		logger.Warn("cannot cache payment request %s: %v", req.Address, err)
	}
}

// get returns a fresh entry for address or nil.
func (rc *requestCache) get(address string) *wallet.PaymentRequest {
	c, err := rc.entries.Get(address)
	switch {
	case errors.Is(err, cache.ErrElementNotFound):
		return nil
	case err != nil:
		logger.Warn("payment request cache: %v", err)
		return nil
	}
	if rc.expired(c) {
		rc.entries.Delete(address)
		logger.Debug("payment request %s removed from cache", address)
		return nil
	}
	return c.req.Copy()
}

// setMetadata replaces the metadata of a cached request without touching
// its fetch time.
func (rc *requestCache) setMetadata(address string, metadata map[string]string) {
	c, err := rc.entries.Get(address)
	if err != nil {
		return
	}
	req := c.req.Copy()
	req.Metadata = nil
	for k, v := range metadata {
		req.AddMetadata(k, v)
	}
	_, err = rc.entries.Put(address, &cachedRequest{req: req, fetched: c.fetched})
	if err != nil {
		logger.Warn("cannot cache payment request %s: %v", address, err)
	}
}

func (rc *requestCache) count() int {
	return rc.entries.Len()
}
