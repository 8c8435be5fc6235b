package wallet

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcwallet/wallet/txrules"
)

// feeCacheTTL is how long a fee rate fetched for a level is reused.
const feeCacheTTL = time.Minute

var ErrFeeLevel = errors.New("fee level must be between 0.0 and 1.0")

// FeeSource returns a fee rate in sat/kvB for a fee level.
type FeeSource interface {
	GetFeeRate(ctx context.Context, feeMethod string, feeLevel float64) (int64, error)
}

type feeCache struct {
	rate        float64
	lastUpdated time.Time
}

type FeeProvider struct {
	// FeeMethod is passed to the daemon: "static", "eta" or "mempool".
	FeeMethod string

	// MaxFee caps the returned rate in sat/vB. Zero disables the cap.
	MaxFee float64

	Source FeeSource

	mtx   sync.Mutex
	cache map[float64]*feeCache
}

func NewFeeProvider(source FeeSource, feeMethod string, maxFee float64) *FeeProvider {
	return &FeeProvider{
		FeeMethod: feeMethod,
		MaxFee:    maxFee,
		Source:    source,
		cache:     make(map[float64]*feeCache),
	}
}

// GetFeePerByte returns the daemon fee rate for feeLevel in sat/vB. A level
// of 0.0 is the cheapest and 1.0 the fastest.
func (fp *FeeProvider) GetFeePerByte(ctx context.Context, feeLevel float64) (float64, error) {
	if math.IsNaN(feeLevel) || feeLevel < 0.0 || feeLevel > 1.0 {
		return 0, ErrFeeLevel
	}

	fp.mtx.Lock()
	c, ok := fp.cache[feeLevel]
	if ok && time.Since(c.lastUpdated) <= feeCacheTTL {
		fp.mtx.Unlock()
		return c.rate, nil
	}
	fp.mtx.Unlock()

	perKvB, err := fp.Source.GetFeeRate(ctx, fp.FeeMethod, feeLevel)
	if err != nil {
		return 0, err
	}
	rate := fp.selectFee(float64(perKvB) / 1000)

	fp.mtx.Lock()
	fp.cache[feeLevel] = &feeCache{rate: rate, lastUpdated: time.Now()}
	fp.mtx.Unlock()
	return rate, nil
}

// selectFee keeps rate between the default relay fee and MaxFee.
func (fp *FeeProvider) selectFee(rate float64) float64 {
	if fp.MaxFee > 0 && rate > fp.MaxFee {
		return fp.MaxFee
	}
	if minRate := relayFeePerByte(); rate < minRate {
		return minRate
	}
	return rate
}

func relayFeePerByte() float64 {
	return float64(txrules.DefaultRelayFeePerKb) / 1000
}

// FeeTooHigh reports whether an absolute fee is at or above the sanity limit
// of 0.01 BTC.
func FeeTooHigh(fee btcutil.Amount) bool {
	return fee >= MaxAbsoluteFee
}

// MaxAbsoluteFee is the smallest absolute fee refused for a payment.
const MaxAbsoluteFee = btcutil.Amount(btcutil.SatoshiPerBitcent)
