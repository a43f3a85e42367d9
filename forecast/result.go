package forecast

import (
	"fmt"

	"github.com/bitcoinfees/feecast/feefrac"
)

// Result is a single forecaster's verdict: either a pair of fee rate
// estimates or an error string, always carrying the forecaster's name and
// the chain tip height at creation. A result whose fee rates are both zero
// is treated the same as a failure.
type Result struct {
	Forecaster   string          `json:"forecaster"`
	Height       int64           `json:"height"`
	LowPriority  feefrac.FeeRate `json:"lowpriority"`
	HighPriority feefrac.FeeRate `json:"highpriority"`
	Err          string          `json:"error,omitempty"`
}

// Empty reports whether r carries no usable estimate.
func (r Result) Empty() bool {
	return r.LowPriority == 0 && r.HighPriority == 0
}

// Less reports whether r is a strictly cheaper usable result than other.
// Comparison is by low-priority fee rate; an empty result sorts after any
// non-empty one, so selecting the minimum in one pass picks the cheapest
// usable forecast.
func (r Result) Less(other Result) bool {
	if r.Empty() {
		return false
	}
	if other.Empty() {
		return true
	}
	return r.LowPriority < other.LowPriority
}

func success(name string, height int64, low, high feefrac.FeeRate) Result {
	return Result{
		Forecaster:   name,
		Height:       height,
		LowPriority:  low,
		HighPriority: high,
	}
}

func failure(name string, height int64, format string, args ...interface{}) Result {
	return Result{
		Forecaster: name,
		Height:     height,
		Err:        fmt.Sprintf("%s: %s", name, fmt.Sprintf(format, args...)),
	}
}
