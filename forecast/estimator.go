package forecast

import (
	"log"
	"os"
)

// Estimator aggregates the registered forecasters. Registration happens at
// startup, before queries begin; queries may then run concurrently from
// any goroutine.
type Estimator struct {
	forecasters []Forecaster
	logger      *log.Logger
}

func NewEstimator(logger *log.Logger) *Estimator {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Estimator{logger: logger}
}

// Register appends f to the dispatch order.
func (e *Estimator) Register(f Forecaster) {
	e.forecasters = append(e.forecasters, f)
}

// Estimate queries every registered forecaster and returns the cheapest
// usable result, along with the error strings of the forecasters that
// failed. The returned result is empty only when every forecaster failed.
func (e *Estimator) Estimate(target int) (Result, []string) {
	var (
		best Result
		errs []string
	)
	for _, f := range e.forecasters {
		curr := f.EstimateFee(target)
		if !curr.Empty() {
			if best.Empty() || curr.Less(best) {
				best = curr
			}
		} else if curr.Err != "" {
			e.logger.Printf("[DEBUG] FeeEst: %s height %d: %s",
				curr.Forecaster, curr.Height, curr.Err)
			errs = append(errs, curr.Err)
		}
	}

	if !best.Empty() {
		e.logger.Printf("FeeEst: %s height %d: low priority %d sat/kvB, high priority %d sat/kvB",
			best.Forecaster, best.Height,
			best.LowPriority.FeePerKvB(), best.HighPriority.FeePerKvB())
	}
	return best, errs
}

// All queries every registered forecaster and returns each verdict,
// successes and failures alike, in registration order.
func (e *Estimator) All(target int) []Result {
	results := make([]Result, 0, len(e.forecasters))
	for _, f := range e.forecasters {
		results = append(results, f.EstimateFee(target))
	}
	return results
}

// MaxTarget returns the largest target any registered forecaster serves.
func (e *Estimator) MaxTarget() int {
	max := 0
	for _, f := range e.forecasters {
		if t := f.MaxTarget(); t > max {
			max = t
		}
	}
	return max
}
