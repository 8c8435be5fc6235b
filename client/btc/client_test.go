package btc

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/dev-warrior777/go-electrum-rpc/client"
	"github.com/dev-warrior777/go-electrum-rpc/daemon"
	"github.com/dev-warrior777/go-electrum-rpc/wallet"
	"github.com/dev-warrior777/go-electrum-rpc/wallet/db"
)

var (
	// electrum wallet regtest
	ab = "bcrt1q3fx029uese6mrhvq68u4l6me49refj8maqxvfv"
	// goele wallet regtest
	a1 = "mvP2UeXooRghYvsX7H7XVj78FY49jJw6Sq"

	rawTx = "0100000001ea2d00243734672280308a112cc5b77ec6b7550c522d4a5a1578fd2edd92f65b000000006b483045022100cd5ef583ade6acd1fdd9650b52d4b8a3a50d1d061cba6fdf3840083f43ac840d022010d8731fe53930e17ba7775378528e689af2d21e65b4fab7fd6dcd949553b772012102cb969af83427bfb1d271a7eb16f7fa3d16794a93369d0da293f721e925af9135000000000200e1f505000000001600148a94b43c8ab88812884b1f9aa5b9b8fdc0839fb3a8f66528000000001976a914dd3c22b42d29ea8ab7ec454e8bce628a07200ccd88ac00000000"
)

// mockDaemon is an in-memory ElectrumDaemon.
type mockDaemon struct {
	balance  *daemon.GetBalanceResult
	history  *daemon.HistoryResult
	feeRate  int64
	txid     string
	requests map[string]*daemon.RequestResult
	err      error

	payToArgs struct {
		address string
		amount  any
		fee     float64
	}
	addRequestArgs struct {
		amount float64
		memo   string
		expiry int64
	}
	getRequestCalls int
	broadcastCalls  int
}

var _ daemon.ElectrumDaemon = (*mockDaemon)(nil)

func newMockDaemon() *mockDaemon {
	return &mockDaemon{
		requests: make(map[string]*daemon.RequestResult),
	}
}

func (m *mockDaemon) Version(context.Context) (string, error) { return "4.5.4", m.err }

func (m *mockDaemon) IsMine(_ context.Context, address string) (bool, error) {
	return address == ab, m.err
}

func (m *mockDaemon) ValidateAddress(_ context.Context, address string) (bool, error) {
	return address == ab || address == a1, m.err
}

func (m *mockDaemon) ListAddresses(context.Context) ([]string, error) {
	return []string{ab, a1}, m.err
}

func (m *mockDaemon) CreateNewAddress(context.Context) (string, error) { return a1, m.err }

func (m *mockDaemon) GetUnusedAddress(context.Context) (string, error) { return ab, m.err }

func (m *mockDaemon) GetBalance(context.Context) (*daemon.GetBalanceResult, error) {
	return m.balance, m.err
}

func (m *mockDaemon) OnchainHistory(context.Context) (*daemon.HistoryResult, error) {
	return m.history, m.err
}

func (m *mockDaemon) PayTo(_ context.Context, address string, amount any, fee float64) (string, error) {
	m.payToArgs.address = address
	m.payToArgs.amount = amount
	m.payToArgs.fee = fee
	return rawTx, m.err
}

func (m *mockDaemon) Broadcast(context.Context, string) (string, error) {
	m.broadcastCalls++
	return m.txid, m.err
}

func (m *mockDaemon) GetFeeRate(context.Context, string, float64) (int64, error) {
	return m.feeRate, m.err
}

func (m *mockDaemon) AddRequest(_ context.Context, amount float64, memo string, expiry int64) (*daemon.RequestResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.addRequestArgs.amount = amount
	m.addRequestArgs.memo = memo
	m.addRequestArgs.expiry = expiry
	amt, err := btcutil.NewAmount(amount)
	if err != nil {
		return nil, err
	}
	r := &daemon.RequestResult{
		Address:      ab,
		URI:          "bitcoin:" + ab,
		Status:       0,
		StatusString: "Expires in about 1 hour",
		AmountSat:    int64(amt),
		Message:      memo,
		Timestamp:    1_700_000_000,
		Expiry:       3600,
	}
	m.requests[ab] = r
	return r, nil
}

func (m *mockDaemon) GetRequest(_ context.Context, address string) (*daemon.RequestResult, error) {
	m.getRequestCalls++
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.requests[address]
	if !ok {
		return nil, &daemon.RPCError{Code: 1, Message: "request not found"}
	}
	cp := *r
	return &cp, nil
}

func (m *mockDaemon) ListRequests(context.Context) ([]*daemon.RequestResult, error) {
	var rs []*daemon.RequestResult
	for _, r := range m.requests {
		rs = append(rs, r)
	}
	return rs, m.err
}

func newTestClient(t *testing.T, md *mockDaemon) *BtcElectrumClient {
	t.Helper()
	cfg := client.NewDefaultConfig()
	cfg.Params = &chaincfg.RegressionNetParams
	cfg.Testing = true
	ds, err := db.CreateInMemory()
	require.NoError(t, err)
	cfg.DB = ds
	ec, err := NewBtcElectrumClientWithDaemon(cfg, md)
	require.NoError(t, err)
	t.Cleanup(func() {
		ec.Close()
		ds.Close()
	})
	return ec
}

func TestGetBalance(t *testing.T) {
	md := newMockDaemon()
	md.balance = &daemon.GetBalanceResult{Confirmed: "1.5", Unconfirmed: "0.001", Unmatured: "0.00000001"}
	ec := newTestClient(t, md)

	bal, err := ec.GetBalance(context.Background(), false)
	require.NoError(t, err)
	require.EqualValues(t, 150_000_000, bal.Confirmed)
	require.EqualValues(t, 100_000, bal.Unconfirmed)
	require.EqualValues(t, 1, bal.Unmatured)

	bal, err = ec.GetBalance(context.Background(), true)
	require.NoError(t, err)
	require.EqualValues(t, 150_000_000, bal.Confirmed)
	require.Zero(t, bal.Unconfirmed)
	require.Zero(t, bal.Unmatured)

	// missing keys read as zero
	md.balance = &daemon.GetBalanceResult{Confirmed: "0.1"}
	bal, err = ec.GetBalance(context.Background(), false)
	require.NoError(t, err)
	require.EqualValues(t, 10_000_000, bal.Total())

	md.balance = &daemon.GetBalanceResult{Confirmed: "lots"}
	_, err = ec.GetBalance(context.Background(), false)
	require.ErrorIs(t, err, wallet.ErrInvalidAmount)
}

func TestGetHistory(t *testing.T) {
	md := newMockDaemon()
	md.history = &daemon.HistoryResult{Transactions: []*daemon.HistoryItem{
		{TxID: "aa", Height: 100, Confirmations: 6, Timestamp: 1_700_000_000, Incoming: true, BcValue: "0.5", BcBalance: "0.5"},
		{TxID: "bb", Height: 105, Confirmations: 1, Value: "-0.1", FeeSat: 226},
		{TxID: "cc", Height: 0, Confirmations: 0, BcValue: "0.2"},
	}}
	ec := newTestClient(t, md)

	txs, err := ec.GetHistory(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	require.EqualValues(t, 50_000_000, txs[0].Value)
	require.Equal(t, time.Unix(1_700_000_000, 0), txs[0].Timestamp)
	require.True(t, txs[0].Incoming)
	require.EqualValues(t, -10_000_000, txs[1].Value)
	require.EqualValues(t, 226, txs[1].Fee)
	require.True(t, txs[2].Timestamp.IsZero())

	txs, err = ec.GetHistory(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	txs, err = ec.GetHistory(context.Background(), 6)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, "aa", txs[0].TxID)
}

func TestAddresses(t *testing.T) {
	ec := newTestClient(t, newMockDaemon())
	ctx := context.Background()

	mine, err := ec.IsMine(ctx, " "+ab+" ")
	require.NoError(t, err)
	require.True(t, mine)

	valid, err := ec.IsValid(ctx, "nope")
	require.NoError(t, err)
	require.False(t, valid)

	addrs, err := ec.ListAddresses(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{ab, a1}, addrs)

	addr, err := ec.CreateNewAddress(ctx)
	require.NoError(t, err)
	require.Equal(t, a1, addr)

	addr, err = ec.GetUnusedAddress(ctx)
	require.NoError(t, err)
	require.Equal(t, ab, addr)
}

func TestPayTo(t *testing.T) {
	md := newMockDaemon()
	ec := newTestClient(t, md)
	ctx := context.Background()

	tx, err := ec.PayTo(ctx, ab, 100_000, 0)
	require.NoError(t, err)
	require.Equal(t, rawTx, tx)
	require.Equal(t, ab, md.payToArgs.address)
	require.Equal(t, 0.001, md.payToArgs.amount)
	require.Zero(t, md.payToArgs.fee)

	_, err = ec.PayTo(ctx, ab, 100_000, 2_000)
	require.NoError(t, err)
	require.Equal(t, 0.00002, md.payToArgs.fee)

	_, err = ec.PayTo(ctx, ab, 0, 0)
	require.ErrorIs(t, err, wallet.ErrInvalidAmount)
	_, err = ec.PayTo(ctx, ab, -1, 0)
	require.ErrorIs(t, err, wallet.ErrInvalidAmount)
	_, err = ec.PayTo(ctx, ab, 100_000, -1)
	require.ErrorIs(t, err, wallet.ErrInvalidAmount)
	_, err = ec.PayTo(ctx, ab, 100_000, btcutil.SatoshiPerBitcent)
	require.ErrorIs(t, err, ErrFeeTooHigh)
	_, err = ec.PayTo(ctx, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", 100_000, 0)
	require.ErrorIs(t, err, wallet.ErrInvalidAddress)
}

func TestPayMax(t *testing.T) {
	md := newMockDaemon()
	ec := newTestClient(t, md)

	_, err := ec.PayMax(context.Background(), a1, 1000)
	require.NoError(t, err)
	require.Equal(t, daemon.PayMaxAmount, md.payToArgs.amount)
	require.Equal(t, a1, md.payToArgs.address)
}

func TestBroadcast(t *testing.T) {
	b, err := hex.DecodeString(rawTx)
	require.NoError(t, err)
	tx, err := newWireTx(b, true)
	require.NoError(t, err)
	localTxid := tx.TxHash().String()

	md := newMockDaemon()
	md.txid = localTxid
	ec := newTestClient(t, md)
	ctx := context.Background()

	txid, err := ec.Broadcast(ctx, rawTx)
	require.NoError(t, err)
	require.Equal(t, localTxid, txid)

	// a differing txid is returned as the daemon sent it
	md.txid = "0000000000000000000000000000000000000000000000000000000000000001"
	txid, err = ec.Broadcast(ctx, rawTx)
	require.NoError(t, err)
	require.Equal(t, md.txid, txid)

	md.txid = "not a txid"
	_, err = ec.Broadcast(ctx, rawTx)
	require.Error(t, err)

	calls := md.broadcastCalls
	_, err = ec.Broadcast(ctx, "zz")
	require.ErrorIs(t, err, ErrBadTx)
	_, err = ec.Broadcast(ctx, "0100")
	require.ErrorIs(t, err, ErrBadTx)
	require.Equal(t, calls, md.broadcastCalls, "bad tx must not reach the daemon")
}

func TestGetFeeRate(t *testing.T) {
	md := newMockDaemon()
	md.feeRate = 12_345
	ec := newTestClient(t, md)

	rate, err := ec.GetFeeRate(context.Background(), 0.5)
	require.NoError(t, err)
	require.Equal(t, 12.345, rate)

	_, err = ec.GetFeeRate(context.Background(), 2)
	require.ErrorIs(t, err, wallet.ErrFeeLevel)
}

func TestCreatePaymentRequest(t *testing.T) {
	md := newMockDaemon()
	ec := newTestClient(t, md)
	ctx := context.Background()

	pr, err := ec.CreatePaymentRequest(ctx, 250_000, "coffee")
	require.NoError(t, err)
	require.Equal(t, ab, pr.Address)
	require.EqualValues(t, 250_000, pr.Amount)
	require.Equal(t, "0.00250000", pr.AmountBTC)
	require.Equal(t, "coffee", pr.Memo)
	require.Equal(t, wallet.PaymentCreated, pr.Status)
	require.EqualValues(t, 1_700_003_600, pr.Expiration)
	require.Equal(t, 0.0025, md.addRequestArgs.amount)
	require.Zero(t, md.addRequestArgs.expiry)

	// served from the cache
	got, err := ec.GetPaymentRequest(ctx, ab)
	require.NoError(t, err)
	require.Equal(t, pr, got)
	require.Zero(t, md.getRequestCalls)

	journaled, err := ec.JournalRequests()
	require.NoError(t, err)
	require.Len(t, journaled, 1)
	require.Equal(t, ab, journaled[0].Address)

	_, err = ec.CreatePaymentRequest(ctx, 0, "")
	require.ErrorIs(t, err, wallet.ErrInvalidAmount)
}

func TestCreatePaymentRequestExpiry(t *testing.T) {
	md := newMockDaemon()
	ec := newTestClient(t, md)
	ec.ClientConfig.RequestExpiry = time.Hour

	_, err := ec.CreatePaymentRequest(context.Background(), 1000, "")
	require.NoError(t, err)
	require.EqualValues(t, 3600, md.addRequestArgs.expiry)
}

func TestGetPaymentRequestReadThrough(t *testing.T) {
	md := newMockDaemon()
	md.requests[a1] = &daemon.RequestResult{
		Address:    a1,
		Status:     7,
		AmountBTC:  "0.01",
		Timestamp:  1_700_000_000,
		Expiration: 1_700_000_600,
	}
	ec := newTestClient(t, md)
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	ec.requests.now = func() time.Time { return now }

	pr, err := ec.GetPaymentRequest(ctx, a1)
	require.NoError(t, err)
	require.Equal(t, wallet.PaymentUnconfirmed, pr.Status)
	require.EqualValues(t, 1_000_000, pr.Amount)
	require.Equal(t, 1, md.getRequestCalls)

	_, err = ec.GetPaymentRequest(ctx, a1)
	require.NoError(t, err)
	require.Equal(t, 1, md.getRequestCalls)

	// stale after the ttl
	now = now.Add(client.DefaultRequestCacheTTL)
	md.requests[a1].Status = 3
	pr, err = ec.GetPaymentRequest(ctx, a1)
	require.NoError(t, err)
	require.Equal(t, 2, md.getRequestCalls)
	require.Equal(t, wallet.PaymentPaid, pr.Status)

	// fetch always goes to the daemon
	_, err = ec.FetchPaymentRequest(ctx, a1)
	require.NoError(t, err)
	require.Equal(t, 3, md.getRequestCalls)

	_, err = ec.GetPaymentRequest(ctx, "unknown")
	var rpcErr *daemon.RPCError
	require.ErrorAs(t, err, &rpcErr)
}

func TestPaymentRequestMetadata(t *testing.T) {
	md := newMockDaemon()
	ec := newTestClient(t, md)
	ctx := context.Background()

	pr, err := ec.CreatePaymentRequest(ctx, 250_000, "coffee")
	require.NoError(t, err)
	// the returned request is the caller's own copy
	pr.AddMetadata("scratch", "x")
	got, err := ec.GetPaymentRequest(ctx, ab)
	require.NoError(t, err)
	require.Nil(t, got.Metadata)

	pr, err = ec.SetPaymentRequestMetadata(ctx, ab, "order", "42")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"order": "42"}, pr.Metadata)
	_, err = ec.SetPaymentRequestMetadata(ctx, ab, "customer", "bob")
	require.NoError(t, err)
	want := map[string]string{"order": "42", "customer": "bob"}

	journaled, err := ec.JournalRequests()
	require.NoError(t, err)
	require.Equal(t, want, journaled[0].Metadata)

	got, err = ec.GetPaymentRequest(ctx, ab)
	require.NoError(t, err)
	require.Equal(t, want, got.Metadata)
	require.Zero(t, md.getRequestCalls)

	md.requests[ab].Status = 3
	got, err = ec.FetchPaymentRequest(ctx, ab)
	require.NoError(t, err)
	require.Equal(t, wallet.PaymentPaid, got.Status)
	require.Equal(t, want, got.Metadata)

	got, err = ec.GetPaymentRequest(ctx, ab)
	require.NoError(t, err)
	require.Equal(t, want, got.Metadata)

	prs, err := ec.ListPaymentRequests(ctx)
	require.NoError(t, err)
	require.Len(t, prs, 1)
	require.Equal(t, want, prs[0].Metadata)

	_, err = ec.SetPaymentRequestMetadata(ctx, ab, "", "v")
	require.Error(t, err)
}

func TestPaymentRequestMetadataNotJournaled(t *testing.T) {
	md := newMockDaemon()
	md.requests[a1] = &daemon.RequestResult{Address: a1, Status: 0, AmountSat: 5000}
	ec := newTestClient(t, md)
	ctx := context.Background()

	pr, err := ec.SetPaymentRequestMetadata(ctx, a1, "order", "7")
	require.NoError(t, err)
	require.Equal(t, a1, pr.Address)
	require.Equal(t, "7", pr.Metadata["order"])

	journaled, err := ec.JournalRequests()
	require.NoError(t, err)
	require.Len(t, journaled, 1)
	require.Equal(t, "7", journaled[0].Metadata["order"])

	_, err = ec.SetPaymentRequestMetadata(ctx, "unknown", "order", "7")
	var rpcErr *daemon.RPCError
	require.ErrorAs(t, err, &rpcErr)
}

func TestListPaymentRequests(t *testing.T) {
	md := newMockDaemon()
	md.requests[a1] = &daemon.RequestResult{Address: a1, Status: 0, AmountSat: 5000}
	md.requests["bad"] = &daemon.RequestResult{}
	ec := newTestClient(t, md)

	prs, err := ec.ListPaymentRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, prs, 1)
	require.Equal(t, "0.00005000", prs[0].AmountBTC)
}

func TestWaitForPayment(t *testing.T) {
	md := newMockDaemon()
	md.requests[a1] = &daemon.RequestResult{Address: a1, Status: 3}
	ec := newTestClient(t, md)

	pr, err := ec.WaitForPayment(context.Background(), a1, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, wallet.PaymentPaid, pr.Status)

	md.requests[a1].Status = 1
	_, err = ec.WaitForPayment(context.Background(), a1, time.Millisecond)
	require.ErrorIs(t, err, ErrRequestExpired)

	// past its expiration while the daemon still reports it unpaid
	md.requests[a1].Status = 0
	md.requests[a1].Expiration = time.Now().Add(-time.Minute).Unix()
	pr, err = ec.WaitForPayment(context.Background(), a1, time.Millisecond)
	require.ErrorIs(t, err, ErrRequestExpired)
	require.Equal(t, wallet.PaymentCreated, pr.Status)

	md.requests[a1].Expiration = time.Now().Add(time.Hour).Unix()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = ec.WaitForPayment(ctx, a1, time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Greater(t, md.getRequestCalls, 3)
}

func TestDaemonErrorPassthrough(t *testing.T) {
	md := newMockDaemon()
	md.err = daemon.ErrUnauthorized
	ec := newTestClient(t, md)

	_, err := ec.Ping(context.Background())
	require.ErrorIs(t, err, daemon.ErrUnauthorized)
	_, err = ec.GetBalance(context.Background(), false)
	require.True(t, errors.Is(err, daemon.ErrUnauthorized))
}

func TestNoJournal(t *testing.T) {
	cfg := client.NewDefaultConfig()
	cfg.NoJournal = true
	ec, err := NewBtcElectrumClientWithDaemon(cfg, newMockDaemon())
	require.NoError(t, err)
	defer ec.Close()

	_, err = ec.CreatePaymentRequest(context.Background(), 1000, "")
	require.NoError(t, err)
	_, err = ec.JournalRequests()
	require.ErrorIs(t, err, ErrNoJournal)
	_, err = ec.SetPaymentRequestMetadata(context.Background(), ab, "order", "42")
	require.ErrorIs(t, err, ErrNoJournal)
}

func TestUnits(t *testing.T) {
	ec := newTestClient(t, newMockDaemon())
	sat, err := ec.BtcToSat(0.5)
	require.NoError(t, err)
	require.EqualValues(t, 50_000_000, sat)
	require.Equal(t, 0.5, ec.SatToBtc(sat))
}
