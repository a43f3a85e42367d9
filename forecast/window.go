package forecast

import (
	"log"
	"os"
	"sync"

	"github.com/bitcoinfees/feecast/feefrac"
	"github.com/bitcoinfees/feecast/mining"
)

const (
	// BlockWindowForecastName identifies the sliding-window forecaster.
	BlockWindowForecastName = "block-window"

	// DefaultWindowBlocks is the default number of blocks averaged.
	DefaultWindowBlocks = 3
)

// BlockWindowForecaster averages the percentile fee rates of the last N
// confirmed blocks' linearizations. It serves estimates only once the
// window is full; a block whose percentiles are unusable is skipped rather
// than pushed.
type BlockWindowForecaster struct {
	numBlocks int
	maxTarget int

	mux       sync.RWMutex
	window    []BlockPercentiles // oldest first
	tipHeight int64

	logger *log.Logger
}

// NewBlockWindowForecaster keeps the percentiles of the last numBlocks
// blocks and serves targets up to maxTarget blocks.
func NewBlockWindowForecaster(numBlocks, maxTarget int, logger *log.Logger) *BlockWindowForecaster {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	if numBlocks <= 0 {
		numBlocks = DefaultWindowBlocks
	}
	if maxTarget <= 0 {
		maxTarget = numBlocks
	}
	return &BlockWindowForecaster{
		numBlocks: numBlocks,
		maxTarget: maxTarget,
		logger:    logger,
	}
}

func (f *BlockWindowForecaster) Name() string {
	return BlockWindowForecastName
}

func (f *BlockWindowForecaster) MaxTarget() int {
	return f.maxTarget
}

func (f *BlockWindowForecaster) OnBlockConnected(ev *BlockEvent) {
	r := mining.Linearize(ev.Removed)
	p := CalculateBlockPercentiles(r.Stats)

	f.mux.Lock()
	defer f.mux.Unlock()
	f.tipHeight = ev.Height
	if p.Empty() {
		return
	}
	if len(f.window) == f.numBlocks {
		f.window = f.window[1:]
	}
	f.window = append(f.window, p)
}

func (f *BlockWindowForecaster) EstimateFee(target int) Result {
	f.mux.RLock()
	window := make([]BlockPercentiles, len(f.window))
	copy(window, f.window)
	height := f.tipHeight
	f.mux.RUnlock()

	if target <= 0 {
		return failure(BlockWindowForecastName, height, "confirmation target must be greater than zero")
	}
	if target > f.maxTarget {
		return failure(BlockWindowForecastName, height,
			"confirmation target %d is above the maximum limit of %d", target, f.maxTarget)
	}
	if len(window) < f.numBlocks {
		return failure(BlockWindowForecastName, height, "insufficient block data to perform an estimate")
	}

	var p5, p25, p50, p75 int64
	for _, p := range window {
		p5 += p.P5.FeePerKvB()
		p25 += p.P25.FeePerKvB()
		p50 += p.P50.FeePerKvB()
		p75 += p.P75.FeePerKvB()
	}
	n := int64(len(window))
	avg := BlockPercentiles{
		P5:  feefrac.FeeRate(p5 / n),
		P25: feefrac.FeeRate(p25 / n),
		P50: feefrac.FeeRate(p50 / n),
		P75: feefrac.FeeRate(p75 / n),
	}

	f.logger.Printf("[DEBUG] FeeEst: %s: height %d, %s", BlockWindowForecastName, height, avg)
	return success(BlockWindowForecastName, height, avg.P25, avg.P50)
}
