package forecast

import (
	"errors"
	"strings"
	"testing"

	"github.com/bitcoinfees/feecast/feefrac"
	"github.com/bitcoinfees/feecast/mining"
	"github.com/bitcoinfees/feecast/testutil"
)

type fakeChain struct {
	height int64
}

func (c *fakeChain) TipHeight() int64 {
	return c.height
}

type fakeEntry int64

func (e fakeEntry) Time() int64 {
	return int64(e)
}

type fakeMempool struct {
	loaded  bool
	entries map[string]int64 // txid -> arrival time
}

func (m *fakeMempool) LoadTried() bool {
	return m.loaded
}

func (m *fakeMempool) Entry(txid string) (Entry, bool) {
	t, ok := m.entries[txid]
	return fakeEntry(t), ok
}

type fakeSource struct {
	stats []mining.FeeStat
	txids []string
	err   error
	calls int
}

func (s *fakeSource) NextBlockLinearization() ([]mining.FeeStat, []string, error) {
	s.calls++
	return s.stats, s.txids, s.err
}

type fakeSync bool

func (s fakeSync) RoughlySynced() bool {
	return bool(s)
}

// descStats returns 20 packages of 50,000 vB with fee rates 20000 down to
// 1000, one full block in aggregate.
func descStats() ([]mining.FeeStat, []string) {
	rates := make([]int64, 20)
	txids := make([]string, 20)
	for i := range rates {
		rates[i] = int64(20-i) * 1000
		txids[i] = testutil.Txid(i)
	}
	return flatStats(50000, rates...), txids
}

func checkFailure(t *testing.T, r Result, substr string) {
	t.Helper()
	if !r.Empty() {
		t.Fatalf("expected failure, got %+v", r)
	}
	if !strings.Contains(r.Err, substr) {
		t.Errorf("error %q does not contain %q", r.Err, substr)
	}
}

func TestMempoolForecasterFailures(t *testing.T) {
	chain := &fakeChain{height: 100}
	mempool := &fakeMempool{loaded: false}
	source := &fakeSource{}
	f := NewMempoolForecaster(chain, mempool, source, nil, quietLogger())

	checkFailure(t, f.EstimateFee(0), "greater than zero")
	checkFailure(t, f.EstimateFee(4), "above maximum limit")
	checkFailure(t, f.EstimateFee(1), "not finished loading")

	mempool.loaded = true
	checkFailure(t, f.EstimateFee(1), "no transactions available")

	source.err = errors.New("mempool unavailable")
	checkFailure(t, f.EstimateFee(1), "linearizing mempool")
	source.err = nil

	// Too little weight for percentiles.
	source.stats = flatStats(50000, 1000, 1000)
	checkFailure(t, f.EstimateFee(1), "not enough transactions")
}

func TestMempoolForecasterNotSynced(t *testing.T) {
	chain := &fakeChain{height: 100}
	mempool := &fakeMempool{loaded: true}
	source := &fakeSource{}
	source.stats, source.txids = descStats()

	f := NewMempoolForecaster(chain, mempool, source, fakeSync(false), quietLogger())
	checkFailure(t, f.EstimateFee(1), "not in sync")

	g := NewMempoolForecaster(chain, mempool, source, fakeSync(true), quietLogger())
	if r := g.EstimateFee(1); r.Empty() {
		t.Fatalf("expected success, got %+v", r)
	}
}

func TestMempoolForecasterEstimate(t *testing.T) {
	chain := &fakeChain{height: 421074}
	mempool := &fakeMempool{loaded: true}
	source := &fakeSource{}
	source.stats, source.txids = descStats()
	f := NewMempoolForecaster(chain, mempool, source, nil, quietLogger())

	r := f.EstimateFee(1)
	if r.Empty() {
		t.Fatalf("expected success, got %+v", r)
	}
	if err := testutil.CheckEqual(r.LowPriority, feefrac.FeeRate(16000)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(r.HighPriority, feefrac.FeeRate(11000)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(r.Height, int64(421074)); err != nil {
		t.Error(err)
	}

	// One block of data cannot serve target 2.
	checkFailure(t, f.EstimateFee(2), "not enough transactions")

	// Repeat queries are served from the cache without relinearizing.
	calls := source.calls
	f.EstimateFee(1)
	f.EstimateFee(1)
	if err := testutil.CheckEqual(source.calls, calls); err != nil {
		t.Error(err)
	}
}

func TestMempool10MinForecasterWeighting(t *testing.T) {
	chain := &fakeChain{height: 500}
	now := int64(1700000000)
	stats, txids := descStats()

	// The first package's sponsor arrived two minutes ago; every other
	// package is an hour old.
	entries := make(map[string]int64, len(txids))
	for i, txid := range txids {
		entries[txid] = now - 3600
		if i == 0 {
			entries[txid] = now - 120
		}
	}
	mempool := &fakeMempool{loaded: true, entries: entries}
	source := &fakeSource{stats: stats, txids: txids}
	f := NewMempool10MinForecaster(chain, mempool, source, nil, quietLogger())
	f.now = func() int64 { return now }

	r := f.EstimateFee(1)
	if r.Empty() {
		t.Fatalf("expected success, got %+v", r)
	}
	// Double-counting the urgent 200,000-weight package shifts every
	// threshold crossing by one entry.
	if err := testutil.CheckEqual(r.LowPriority, feefrac.FeeRate(17000)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(r.HighPriority, feefrac.FeeRate(12000)); err != nil {
		t.Error(err)
	}
}

func TestMempool10MinForecasterNoUrgent(t *testing.T) {
	chain := &fakeChain{height: 500}
	now := int64(1700000000)
	stats, txids := descStats()

	entries := make(map[string]int64, len(txids))
	for _, txid := range txids {
		entries[txid] = now - 3600
	}
	mempool := &fakeMempool{loaded: true, entries: entries}
	source := &fakeSource{stats: stats, txids: txids}
	f := NewMempool10MinForecaster(chain, mempool, source, nil, quietLogger())
	f.now = func() int64 { return now }

	r := f.EstimateFee(2)
	if r.Empty() {
		t.Fatalf("expected success, got %+v", r)
	}
	if err := testutil.CheckEqual(r.LowPriority, feefrac.FeeRate(16000)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(r.HighPriority, feefrac.FeeRate(11000)); err != nil {
		t.Error(err)
	}

	checkFailure(t, f.EstimateFee(3), "above maximum limit")
}
