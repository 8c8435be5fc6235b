package wallet

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

type mockFeeSource struct {
	rate   int64
	err    error
	calls  int
	method string
	level  float64
}

func (m *mockFeeSource) GetFeeRate(_ context.Context, feeMethod string, feeLevel float64) (int64, error) {
	m.calls++
	m.method = feeMethod
	m.level = feeLevel
	return m.rate, m.err
}

func TestFeeProvider_GetFeePerByte(t *testing.T) {
	src := &mockFeeSource{rate: 25_000}
	fp := NewFeeProvider(src, "eta", 0)

	rate, err := fp.GetFeePerByte(context.Background(), 0.5)
	require.NoError(t, err)
	require.Equal(t, 25.0, rate)
	require.Equal(t, "eta", src.method)
	require.Equal(t, 0.5, src.level)

	// cached for the same level
	_, err = fp.GetFeePerByte(context.Background(), 0.5)
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)

	_, err = fp.GetFeePerByte(context.Background(), 1.0)
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
}

func TestFeeProvider_Level(t *testing.T) {
	src := &mockFeeSource{rate: 1000}
	fp := NewFeeProvider(src, "eta", 0)
	for _, level := range []float64{-0.1, 1.01, math.NaN(), math.Inf(1)} {
		_, err := fp.GetFeePerByte(context.Background(), level)
		require.ErrorIs(t, err, ErrFeeLevel, "level %v", level)
	}
	require.Zero(t, src.calls)
	require.Empty(t, fp.cache)
}

func TestFeeProvider_Bounds(t *testing.T) {
	fp := NewFeeProvider(&mockFeeSource{rate: 500_000}, "mempool", 100)
	rate, err := fp.GetFeePerByte(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 100.0, rate)

	fp = NewFeeProvider(&mockFeeSource{rate: 10}, "static", 0)
	rate, err = fp.GetFeePerByte(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, relayFeePerByte(), rate)
}

func TestFeeProvider_SourceError(t *testing.T) {
	boom := errors.New("boom")
	fp := NewFeeProvider(&mockFeeSource{err: boom}, "eta", 0)
	_, err := fp.GetFeePerByte(context.Background(), 0.5)
	require.ErrorIs(t, err, boom)
}

func TestFeeTooHigh(t *testing.T) {
	require.False(t, FeeTooHigh(btcutil.Amount(999_999)))
	require.True(t, FeeTooHigh(btcutil.Amount(1_000_000)))
	require.True(t, FeeTooHigh(btcutil.Amount(5_000_000)))
}
