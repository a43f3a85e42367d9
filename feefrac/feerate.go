package feefrac

import "fmt"

// FeeRate is a fee rate in satoshis per 1000 virtual bytes.
type FeeRate int64

// NewFeeRate computes the fee rate paid by fee satoshis over size virtual
// bytes, rounding toward zero. A zero size yields a zero rate.
func NewFeeRate(fee int64, size int32) FeeRate {
	if size == 0 {
		return 0
	}
	return FeeRate(fee * 1000 / int64(size))
}

// Rate returns the fee rate of f in satoshis per kvB.
func (f FeeFrac) Rate() FeeRate {
	return NewFeeRate(f.Fee, f.Size)
}

// FeePerKvB returns the rate as a plain int64.
func (r FeeRate) FeePerKvB() int64 {
	return int64(r)
}

// Fee returns the fee for a transaction of the given virtual size at rate
// r, rounding toward zero.
func (r FeeRate) Fee(size int32) int64 {
	return int64(r) * int64(size) / 1000
}

func (r FeeRate) String() string {
	return fmt.Sprintf("%d sat/kvB", int64(r))
}
