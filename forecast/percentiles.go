package forecast

import (
	"fmt"

	"github.com/bitcoinfees/feecast/feefrac"
	"github.com/bitcoinfees/feecast/mining"
)

// BlockPercentiles are the fee rates at which cumulative weight first
// reaches 5%, 25%, 50% and 75% of DefaultBlockMaxWeight. The zero value
// signals insufficient data.
type BlockPercentiles struct {
	P5  feefrac.FeeRate `json:"p5"`
	P25 feefrac.FeeRate `json:"p25"`
	P50 feefrac.FeeRate `json:"p50"`
	P75 feefrac.FeeRate `json:"p75"`
}

// Empty reports whether the percentiles carry no usable data.
func (p BlockPercentiles) Empty() bool {
	return p.P75 == 0
}

func (p BlockPercentiles) String() string {
	return fmt.Sprintf("p5 %d, p25 %d, p50 %d, p75 %d sat/kvB",
		p.P5.FeePerKvB(), p.P25.FeePerKvB(), p.P50.FeePerKvB(), p.P75.FeePerKvB())
}

// CalculateBlockPercentiles walks stats in the caller's order, records the
// fee rate at the moment cumulative weight crosses each percentile
// threshold, and returns the zero value if the accumulated weight never
// reaches half a block. Each percentile is written exactly once; the
// caller chooses the direction of the walk (mempool linearizations run
// from the best feerate down, the time-bucketed forecaster from the worst
// up).
func CalculateBlockPercentiles(stats []mining.FeeStat) BlockPercentiles {
	var (
		p      BlockPercentiles
		weight int64
	)
	for _, s := range stats {
		weight += int64(s.VSize) * WitnessScaleFactor
		if p.P5 == 0 && weight >= DefaultBlockMaxWeight/20 {
			p.P5 = s.FeeRate
		}
		if p.P25 == 0 && weight >= DefaultBlockMaxWeight/4 {
			p.P25 = s.FeeRate
		}
		if p.P50 == 0 && weight >= DefaultBlockMaxWeight/2 {
			p.P50 = s.FeeRate
		}
		if p.P75 == 0 && weight >= 3*DefaultBlockMaxWeight/4 {
			p.P75 = s.FeeRate
		}
	}
	if weight < DefaultBlockMaxWeight/2 {
		return BlockPercentiles{}
	}
	return p
}
