package forecast

import (
	"log"
	"os"
	"sync"

	"github.com/bitcoinfees/feecast/mining"
)

const (
	// LastBlockForecastName identifies the last-block forecaster.
	LastBlockForecastName = "last-block"

	LastBlockForecastMaxTarget = 2
)

// LastBlockForecaster estimates from the most recently confirmed block:
// the percentile fee rates of the linearization of the transactions that
// block took out of the mempool. State is overwritten on every block whose
// percentiles are usable.
type LastBlockForecaster struct {
	mux         sync.RWMutex
	percentiles BlockPercentiles
	tipHeight   int64

	logger *log.Logger
}

func NewLastBlockForecaster(logger *log.Logger) *LastBlockForecaster {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &LastBlockForecaster{logger: logger}
}

func (f *LastBlockForecaster) Name() string {
	return LastBlockForecastName
}

func (f *LastBlockForecaster) MaxTarget() int {
	return LastBlockForecastMaxTarget
}

func (f *LastBlockForecaster) OnBlockConnected(ev *BlockEvent) {
	r := mining.Linearize(ev.Removed)
	p := CalculateBlockPercentiles(r.Stats)

	f.mux.Lock()
	defer f.mux.Unlock()
	f.tipHeight = ev.Height
	if !p.Empty() {
		f.percentiles = p
	}
}

func (f *LastBlockForecaster) EstimateFee(target int) Result {
	f.mux.RLock()
	p, height := f.percentiles, f.tipHeight
	f.mux.RUnlock()

	if target <= 0 {
		return failure(LastBlockForecastName, height, "confirmation target must be greater than zero")
	}
	if target > LastBlockForecastMaxTarget {
		return failure(LastBlockForecastName, height,
			"confirmation target %d is above the maximum limit of %d", target, LastBlockForecastMaxTarget)
	}
	if p.Empty() {
		return failure(LastBlockForecastName, height, "insufficient block data to perform an estimate")
	}

	f.logger.Printf("[DEBUG] FeeEst: %s: height %d, %s", LastBlockForecastName, height, p)
	return success(LastBlockForecastName, height, p.P25, p.P50)
}
