package forecast

import (
	"math/rand"
	"testing"

	"github.com/bitcoinfees/feecast/feefrac"
	"github.com/bitcoinfees/feecast/mining"
	"github.com/bitcoinfees/feecast/testutil"
)

const ntimeNow = int64(1700000000)

// randomLatencyBlock builds an event of n independent txs with uniformly
// random fee rates in [minRate, maxRate], all received at rcvd and
// confirmed at the event time.
func randomLatencyBlock(rng *rand.Rand, height int64, n int, minRate, maxRate, rcvd, confirmed int64) *BlockEvent {
	ev := &BlockEvent{Height: height, Time: confirmed}
	for i := 0; i < n; i++ {
		rate := minRate + rng.Int63n(maxRate-minRate+1)
		const vsize = 6000
		ev.Removed = append(ev.Removed, &mining.Tx{
			Txid:  testutil.Txid(int(height)*1000 + i),
			Fee:   rate * vsize / 1000,
			VSize: vsize,
			Time:  rcvd,
		})
	}
	return ev
}

func newTestNTime() *NTimeForecaster {
	f := NewNTimeForecaster(quietLogger())
	f.now = func() int64 { return ntimeNow }
	return f
}

func TestNTimeEstimate(t *testing.T) {
	f := newTestNTime()
	rng := rand.New(rand.NewSource(42))

	// 100 txs confirmed 22 hours ago with 2h latency: the previous
	// aligned day window for a 2-hour target.
	f.OnBlockConnected(randomLatencyBlock(rng, 1, 100, 1000, 10000,
		ntimeNow-24*secondsPerHour, ntimeNow-22*secondsPerHour))

	// 100 txs confirmed now with 2h latency: the trailing window.
	f.OnBlockConnected(randomLatencyBlock(rng, 2, 100, 1000, 10000,
		ntimeNow-2*secondsPerHour, ntimeNow))

	r := f.EstimateFee(2)
	if r.Empty() {
		t.Fatalf("expected success, got %+v", r)
	}
	if r.LowPriority > r.HighPriority {
		t.Errorf("low priority %v above high priority %v", r.LowPriority, r.HighPriority)
	}
	for _, rate := range []feefrac.FeeRate{r.LowPriority, r.HighPriority} {
		if rate < 1000 || rate > 10000 {
			t.Errorf("estimate %v outside the seeded feerate range", rate)
		}
	}

	// The ascending walk yields non-decreasing percentiles, bounded by
	// the sample range.
	w := f.windowEstimate(2)
	if w.Empty() {
		t.Fatal("window estimate should have enough weight")
	}
	if w.P25 > w.P50 || w.P50 > w.P75 {
		t.Errorf("window percentiles not non-decreasing: %s", w)
	}
	if w.P75-w.P25 > 9000 {
		t.Errorf("percentile spread %d exceeds the sample range", w.P75-w.P25)
	}
}

func TestNTimeMissingData(t *testing.T) {
	f := newTestNTime()

	checkFailure(t, f.EstimateFee(2), "window estimate")
	checkFailure(t, f.EstimateFee(0), "greater than zero")
	checkFailure(t, f.EstimateFee(505), "above maximum limit")

	// Only the trailing window has data: the historical side fails.
	rng := rand.New(rand.NewSource(7))
	f.OnBlockConnected(randomLatencyBlock(rng, 1, 100, 1000, 10000,
		ntimeNow-2*secondsPerHour, ntimeNow))
	checkFailure(t, f.EstimateFee(2), "historical estimate")
}

func TestNTimePicksCheaperSide(t *testing.T) {
	f := newTestNTime()
	rng := rand.New(rand.NewSource(9))

	// Historical side is uniformly cheap, trailing window expensive.
	f.OnBlockConnected(randomLatencyBlock(rng, 1, 100, 2000, 2000,
		ntimeNow-24*secondsPerHour, ntimeNow-22*secondsPerHour))
	f.OnBlockConnected(randomLatencyBlock(rng, 2, 100, 50000, 50000,
		ntimeNow-2*secondsPerHour, ntimeNow))

	r := f.EstimateFee(2)
	if err := testutil.CheckEqual(r.LowPriority, feefrac.FeeRate(2000)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(r.HighPriority, feefrac.FeeRate(2000)); err != nil {
		t.Error(err)
	}
}

func TestNTimeTrackingShift(t *testing.T) {
	f := newTestNTime()

	// One tx confirmed 30 minutes after arrival lands in bucket [0][0].
	f.OnBlockConnected(&BlockEvent{
		Height: 1,
		Time:   ntimeNow,
		Removed: []*mining.Tx{
			{Txid: testutil.Txid(1), Fee: 5000, VSize: 1000, Time: ntimeNow - 1800},
		},
	})
	if err := testutil.CheckEqual(len(f.stats[0][0]), 1); err != nil {
		t.Fatal(err)
	}

	f.UpdateTrackingStats()
	if err := testutil.CheckEqual(len(f.stats[0][0]), 0); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(len(f.stats[1][0]), 1); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(len(f.stats[1]), 2); err != nil {
		t.Error(err)
	}
}

func TestNTimeOverflowDiscarded(t *testing.T) {
	f := newTestNTime()

	// Latency beyond the tracked horizon is dropped.
	f.OnBlockConnected(&BlockEvent{
		Height: 1,
		Time:   ntimeNow,
		Removed: []*mining.Tx{
			{Txid: testutil.Txid(1), Fee: 5000, VSize: 1000,
				Time: ntimeNow - (MaxTrackedHours+1)*secondsPerHour},
		},
	})
	for _, row := range f.stats {
		for _, bucket := range row {
			if len(bucket) != 0 {
				t.Fatal("overflowing transaction should not be tracked")
			}
		}
	}
}
