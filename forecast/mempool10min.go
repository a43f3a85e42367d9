package forecast

import (
	"log"
	"os"
	"time"

	"github.com/bitcoinfees/feecast/mining"
)

const (
	// Mempool10MinForecastName identifies the urgency-weighted mempool
	// forecaster.
	Mempool10MinForecastName = "mempool-last-10-min"

	Mempool10MinForecastMaxTarget = 2

	urgencyWindow = 10 * time.Minute
)

// Mempool10MinForecaster is the mempool snapshot forecaster with an
// urgency bias: packages whose first transaction arrived within the last
// ten minutes count twice, both in weight and in the percentile stream.
// Other nodes are most likely also seeing those transactions, so they
// dominate what the next block will look like. No cache: the weighting
// depends on the current clock.
type Mempool10MinForecaster struct {
	chain   Chain
	mempool Mempool
	source  NextBlockSource
	sync    SyncChecker // optional
	logger  *log.Logger

	// now is the time source; replaced in tests.
	now func() int64
}

func NewMempool10MinForecaster(chain Chain, mempool Mempool, source NextBlockSource, sync SyncChecker, logger *log.Logger) *Mempool10MinForecaster {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Mempool10MinForecaster{
		chain:   chain,
		mempool: mempool,
		source:  source,
		sync:    sync,
		logger:  logger,
		now:     func() int64 { return time.Now().Unix() },
	}
}

func (f *Mempool10MinForecaster) Name() string {
	return Mempool10MinForecastName
}

func (f *Mempool10MinForecaster) MaxTarget() int {
	return Mempool10MinForecastMaxTarget
}

func (f *Mempool10MinForecaster) EstimateFee(target int) Result {
	height := f.chain.TipHeight()

	if target <= 0 {
		return failure(Mempool10MinForecastName, height, "confirmation target must be greater than zero")
	}
	if target > Mempool10MinForecastMaxTarget {
		return failure(Mempool10MinForecastName, height,
			"confirmation target %d is above maximum limit of %d, mempool conditions might change and forecasts above %d blocks may be unreliable",
			target, Mempool10MinForecastMaxTarget, Mempool10MinForecastMaxTarget)
	}
	if !f.mempool.LoadTried() {
		return failure(Mempool10MinForecastName, height, "mempool not finished loading; can't get accurate feerate forecast")
	}
	if f.sync != nil && !f.sync.RoughlySynced() {
		return failure(Mempool10MinForecastName, height, "mempool not in sync with recent blocks")
	}

	stats, firstTxids, err := f.source.NextBlockLinearization()
	if err != nil {
		return failure(Mempool10MinForecastName, height, "linearizing mempool: %v", err)
	}
	if len(stats) == 0 {
		return failure(Mempool10MinForecastName, height, "no transactions available in the mempool")
	}

	weighted := f.weightUrgent(stats, firstTxids)
	p := CalculateBlockPercentiles(weighted)
	if p.Empty() {
		return failure(Mempool10MinForecastName, height, "not enough transactions in the mempool to provide a feerate forecast")
	}

	f.logger.Printf("[DEBUG] FeeEst: %s: height %d, %s", Mempool10MinForecastName, height, p)
	return success(Mempool10MinForecastName, height, p.P25, p.P50)
}

// weightUrgent emits each package once, or twice when its first
// transaction arrived within the urgency window, stopping before the
// effective weight would exceed one block.
func (f *Mempool10MinForecaster) weightUrgent(stats []mining.FeeStat, firstTxids []string) []mining.FeeStat {
	cutoff := f.now() - int64(urgencyWindow/time.Second)
	weighted := make([]mining.FeeStat, 0, len(stats))

	var weight int64
	for i, s := range stats {
		w := int64(s.VSize) * WitnessScaleFactor
		urgent := false
		if i < len(firstTxids) {
			if entry, ok := f.mempool.Entry(firstTxids[i]); ok && entry.Time() >= cutoff {
				urgent = true
				w *= 2
			}
		}
		if weight+w > DefaultBlockMaxWeight {
			break
		}
		weight += w
		weighted = append(weighted, s)
		if urgent {
			weighted = append(weighted, s)
		}
	}
	return weighted
}
