package forecast

import (
	"log"
	"os"

	"github.com/bitcoinfees/feecast/mining"
)

const (
	// MempoolForecastName identifies the mempool snapshot forecaster.
	MempoolForecastName = "mempool"

	// MempoolForecastMaxTarget bounds the confirmation target in blocks.
	// Mempool conditions are likely to change beyond it.
	MempoolForecastMaxTarget = 3
)

// MempoolForecaster estimates from a linearization of the whole current
// mempool: the packages a rational miner would take for the next blocks,
// split at block weight boundaries, with the 25th and 50th percentile fee
// rates of the target block as the low and high priority estimates.
//
// Linearizing is the expensive step and runs under the host's mempool
// locks, so results for all targets are computed at once and cached for
// cacheLife.
type MempoolForecaster struct {
	chain   Chain
	mempool Mempool
	source  NextBlockSource
	sync    SyncChecker // optional
	cache   *CachedEstimates
	logger  *log.Logger
}

func NewMempoolForecaster(chain Chain, mempool Mempool, source NextBlockSource, sync SyncChecker, logger *log.Logger) *MempoolForecaster {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &MempoolForecaster{
		chain:   chain,
		mempool: mempool,
		source:  source,
		sync:    sync,
		cache:   NewCachedEstimates(),
		logger:  logger,
	}
}

func (f *MempoolForecaster) Name() string {
	return MempoolForecastName
}

func (f *MempoolForecaster) MaxTarget() int {
	return MempoolForecastMaxTarget
}

func (f *MempoolForecaster) EstimateFee(target int) Result {
	height := f.chain.TipHeight()

	if target <= 0 {
		return failure(MempoolForecastName, height, "confirmation target must be greater than zero")
	}
	if target > MempoolForecastMaxTarget {
		return failure(MempoolForecastName, height,
			"confirmation target %d is above maximum limit of %d, mempool conditions might change and forecasts above %d blocks may be unreliable",
			target, MempoolForecastMaxTarget, MempoolForecastMaxTarget)
	}
	if !f.mempool.LoadTried() {
		return failure(MempoolForecastName, height, "mempool not finished loading; can't get accurate feerate forecast")
	}
	if f.sync != nil && !f.sync.RoughlySynced() {
		return failure(MempoolForecastName, height, "mempool not in sync with recent blocks")
	}

	if p, ok := f.cache.Get(target); ok {
		return f.resultFrom(height, p)
	}

	stats, _, err := f.source.NextBlockLinearization()
	if err != nil {
		return failure(MempoolForecastName, height, "linearizing mempool: %v", err)
	}
	if len(stats) == 0 {
		return failure(MempoolForecastName, height, "no transactions available in the mempool")
	}

	estimates := blockFeeRates(stats, MempoolForecastMaxTarget)
	f.cache.Update(estimates)

	p := estimates[target]
	if !p.Empty() {
		f.logger.Printf("[DEBUG] FeeEst: %s: height %d, %s", MempoolForecastName, height, p)
	}
	return f.resultFrom(height, p)
}

func (f *MempoolForecaster) resultFrom(height int64, p BlockPercentiles) Result {
	if p.Empty() {
		return failure(MempoolForecastName, height, "not enough transactions in the mempool to provide a feerate forecast")
	}
	return success(MempoolForecastName, height, p.P25, p.P50)
}

// blockFeeRates splits the package stream at block weight boundaries and
// computes percentiles per block, keyed by confirmation target.
func blockFeeRates(stats []mining.FeeStat, numBlocks int) map[int]BlockPercentiles {
	estimates := make(map[int]BlockPercentiles, numBlocks)

	var (
		start       int
		blockWeight int64
		blockNumber = 1
	)
	for i, s := range stats {
		blockWeight += int64(s.VSize) * WitnessScaleFactor
		if blockWeight >= DefaultBlockMaxWeight || i == len(stats)-1 {
			estimates[blockNumber] = CalculateBlockPercentiles(stats[start : i+1])
			blockNumber++
			blockWeight = 0
			start = i + 1
		}
		if blockNumber > numBlocks {
			break
		}
	}
	return estimates
}
