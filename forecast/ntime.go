package forecast

import (
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/bitcoinfees/feecast/feefrac"
	"github.com/bitcoinfees/feecast/mining"
)

const (
	// NTimeForecastName identifies the time-bucketed forecaster.
	NTimeForecastName = "ntime"

	// MaxTrackedHours bounds both tracking axes: hours since a
	// transaction was seen, and hours between arrival and confirmation.
	MaxTrackedHours = 504

	// TrackingUpdateInterval is how often the host shifts the age axis.
	TrackingUpdateInterval = time.Hour
)

// confirmedTx is one tracked confirmation: when the transaction arrived,
// when it confirmed, and the feerate and vsize of the package that carried
// it into its block.
type confirmedTx struct {
	received  int64
	confirmed int64
	feeRate   feefrac.FeeRate
	vsize     int32
}

// NTimeForecaster tracks confirmation latency distributions in a matrix
// indexed by [hours-since-seen][hours-to-confirm]. An estimate for a
// target in hours combines two views: the transactions confirmed within
// the trailing window of that length, and those from the previous aligned
// multi-day window, taking whichever is cheaper at the 75th percentile.
//
// The matrix is mutated on the ingest goroutine and by the hourly
// UpdateTrackingStats tick; queries take the read lock.
type NTimeForecaster struct {
	mux       sync.RWMutex
	stats     [][][]confirmedTx
	tipHeight int64

	logger *log.Logger

	// now is the time source; replaced in tests.
	now func() int64
}

func NewNTimeForecaster(logger *log.Logger) *NTimeForecaster {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &NTimeForecaster{
		stats:  initTrackingStats(),
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// initTrackingStats allocates the tracking matrix: a transaction seen i
// hours ago can have confirmed in at most i+1 latency buckets.
func initTrackingStats() [][][]confirmedTx {
	stats := make([][][]confirmedTx, MaxTrackedHours)
	for i := range stats {
		stats[i] = make([][]confirmedTx, i+1)
	}
	return stats
}

func (f *NTimeForecaster) Name() string {
	return NTimeForecastName
}

func (f *NTimeForecaster) MaxTarget() int {
	return MaxTrackedHours
}

// UpdateTrackingStats ages every bucket by one hour: bucket i moves to
// i+1, the newest bucket empties, and the oldest falls off. Invoked by the
// host scheduler once per hour.
func (f *NTimeForecaster) UpdateTrackingStats() {
	f.mux.Lock()
	defer f.mux.Unlock()

	f.logger.Printf("[DEBUG] FeeEst: %s: updating tracking stats", NTimeForecastName)
	next := initTrackingStats()
	for i := 0; i < MaxTrackedHours-1; i++ {
		next[i+1] = append(append([][]confirmedTx(nil), f.stats[i]...), nil)
	}
	f.stats = next
}

func (f *NTimeForecaster) OnBlockConnected(ev *BlockEvent) {
	byID := make(map[string]*mining.Tx, len(ev.Removed))
	for _, tx := range ev.Removed {
		byID[tx.Txid] = tx
	}

	r := mining.Linearize(ev.Removed)
	confirmed := ev.Time
	if confirmed == 0 {
		confirmed = f.now()
	}

	f.mux.Lock()
	defer f.mux.Unlock()
	f.tipHeight = ev.Height
	for txid, chunk := range r.Order {
		tx := byID[txid]
		f.trackTx(confirmedTx{
			received:  tx.Time,
			confirmed: confirmed,
			feeRate:   r.Stats[chunk].FeeRate,
			vsize:     r.Stats[chunk].VSize,
		})
	}
	f.logger.Printf("[DEBUG] FeeEst: %s: tracked %d transactions at height %d",
		NTimeForecastName, len(ev.Removed), ev.Height)
}

// trackTx buckets one confirmation by latency. Callers hold the write
// lock.
func (f *NTimeForecaster) trackTx(tx confirmedTx) {
	interval := hoursIndex(tx.received, tx.confirmed)
	if interval >= MaxTrackedHours {
		f.logger.Printf("[DEBUG] FeeEst: %s: transaction age is more than the maximum that can be tracked",
			NTimeForecastName)
		return
	}
	f.stats[interval][interval] = append(f.stats[interval][interval], tx)
}

// hoursIndex converts a latency in seconds to a zero-based hour bucket.
func hoursIndex(start, end int64) int {
	d := end - start
	if d <= 0 {
		return 0
	}
	idx := int((d+secondsPerHour-1)/secondsPerHour) - 1
	if idx < 0 {
		return 0
	}
	return idx
}

// txsWithinTime collects every tracked transaction received no earlier
// than startHr hours ago and confirmed no later than endHr hours ago,
// sorted by ascending feerate. Callers hold at least the read lock.
func (f *NTimeForecaster) txsWithinTime(startHr, endHr int) []mining.FeeStat {
	now := f.now()
	startTS := now - int64(startHr)*secondsPerHour
	endTS := now - int64(endHr)*secondsPerHour

	var txs []mining.FeeStat
	for _, row := range f.stats {
		for _, bucket := range row {
			for _, tx := range bucket {
				if tx.received >= startTS && tx.confirmed <= endTS {
					txs = append(txs, mining.FeeStat{FeeRate: tx.feeRate, VSize: tx.vsize})
				}
			}
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].FeeRate < txs[j].FeeRate })
	return txs
}

func (f *NTimeForecaster) windowEstimate(hours int) BlockPercentiles {
	return CalculateBlockPercentiles(f.txsWithinTime(hours, 0))
}

func (f *NTimeForecaster) historicalEstimate(hours int) BlockPercentiles {
	startHr := (hours + 23) / 24 * 24
	endHr := startHr - hours
	return CalculateBlockPercentiles(f.txsWithinTime(startHr, endHr))
}

func (f *NTimeForecaster) EstimateFee(targetHours int) Result {
	f.mux.RLock()
	defer f.mux.RUnlock()

	height := f.tipHeight
	if targetHours <= 0 {
		return failure(NTimeForecastName, height, "confirmation target must be greater than zero")
	}
	if targetHours > MaxTrackedHours {
		return failure(NTimeForecastName, height,
			"confirmation target %d is above maximum limit of %d", targetHours, MaxTrackedHours)
	}

	window := f.windowEstimate(targetHours)
	if window.Empty() {
		return failure(NTimeForecastName, height, "not enough tracked data to provide window estimate")
	}
	f.logger.Printf("[DEBUG] FeeEst: %s: window %d hours, %s", NTimeForecastName, targetHours, window)

	historical := f.historicalEstimate(targetHours)
	if historical.Empty() {
		return failure(NTimeForecastName, height, "not enough tracked data to provide historical estimate")
	}
	f.logger.Printf("[DEBUG] FeeEst: %s: historical %d hours, %s", NTimeForecastName, targetHours, historical)

	// Take the cheaper view at the 75th percentile.
	if window.P75 < historical.P75 {
		return success(NTimeForecastName, height, window.P25, window.P50)
	}
	return success(NTimeForecastName, height, historical.P25, historical.P50)
}
