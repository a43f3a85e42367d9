/*
Package forecast estimates the fee rate a transaction should pay to confirm
within a stated target.

Several forecasters observe the node's view of the network — the current
mempool, the most recent block, a sliding window of blocks, and a matrix of
confirmation latencies — and each produces an independent estimate. The
Estimator dispatches a query to all of them and selects the cheapest
non-empty answer, returning the other forecasters' error strings as
diagnostics.

Block events reach the forecasters through an EventBus owned by the host;
mempool and chain state are read through the narrow adapter interfaces in
this package.
*/
package forecast

import "github.com/bitcoinfees/feecast/mining"

// Consensus constants supplied to the host by its chain parameters.
const (
	DefaultBlockMaxWeight = 4000000
	MaxBlockWeight        = 4000000
	WitnessScaleFactor    = 4
)

const secondsPerHour = 3600

// Forecaster is a single fee rate estimation strategy.
type Forecaster interface {
	Name() string

	// EstimateFee returns the forecast for confirmation within target
	// units (blocks or hours, in the forecaster's native unit). Failures
	// are reported in the result, never as a panic.
	EstimateFee(target int) Result

	// MaxTarget is the largest target this forecaster can serve.
	MaxTarget() int
}

// Chain is the read-only view of the active chain required by the
// forecasters.
type Chain interface {
	TipHeight() int64
}

// Entry is a single mempool entry.
type Entry interface {
	// Time is the entry's arrival time in Unix seconds.
	Time() int64
}

// Mempool is the read-only view of the mempool required by the
// forecasters. Implementations serialize access internally; callers never
// take mempool locks themselves.
type Mempool interface {
	// LoadTried reports whether the initial mempool load has completed.
	LoadTried() bool

	Entry(txid string) (Entry, bool)
}

// NextBlockSource produces a linearization of the current mempool capped
// at the next few blocks' weight: the feerate and vsize of each package in
// inclusion order, plus the txid appearing first in each package.
type NextBlockSource interface {
	NextBlockLinearization() ([]mining.FeeStat, []string, error)
}

// SyncChecker reports whether the local mempool roughly matches what
// miners are working from, judged by recent block contents.
type SyncChecker interface {
	RoughlySynced() bool
}
