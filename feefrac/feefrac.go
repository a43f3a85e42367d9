/*
Package feefrac provides an exact fee-per-size fraction type and the feerate
diagram primitives built on it.

A FeeFrac is a (fee, size) pair ordered first by increasing feerate
(fee/size, compared exactly via cross products) and then by decreasing size.
The empty FeeFrac (fee and size both zero) sorts after everything else, so
in the following list the values are in ascending order:

	{0, 1}   (feerate 0)
	{1, 2}   (feerate 0.5)
	{2, 3}   (feerate 0.667...)
	{2, 2}   (feerate 1)
	{1, 1}   (feerate 1, smaller size)
	{3, 2}   (feerate 1.5)
	{2, 1}   (feerate 2)
	{0, 0}   (undefined feerate)

A FeeFrac that sorts after another is considered "better": a miner prefers
it. RateCmp compares by feerate alone and treats the empty FeeFrac as
incomparable to everything.
*/
package feefrac

// FeeFrac is a fee and size pair. Size zero implies fee zero.
type FeeFrac struct {
	Fee  int64
	Size int32
}

// IsEmpty reports whether f has zero size (and hence zero fee).
func (f FeeFrac) IsEmpty() bool {
	return f.Size == 0
}

// Add returns the componentwise sum of f and other.
func (f FeeFrac) Add(other FeeFrac) FeeFrac {
	return FeeFrac{Fee: f.Fee + other.Fee, Size: f.Size + other.Size}
}

// Sub returns the componentwise difference of f and other.
func (f FeeFrac) Sub(other FeeFrac) FeeFrac {
	return FeeFrac{Fee: f.Fee - other.Fee, Size: f.Size - other.Size}
}

// mul96 multiplies a 64-bit fee by a 32-bit size, returning the product as
// a (high int64, low uint32) pair. The pair orders lexicographically the
// same way the exact 96-bit product would: low holds the low 32 bits and
// high the remaining upper bits, sign included. Emulated with two half
// width multiplies since Go has no 128-bit integer type.
func mul96(a int64, b int32) (hi int64, lo uint32) {
	low := int64(uint32(a)) * int64(b)
	high := (a >> 32) * int64(b)
	return high + (low >> 32), uint32(low)
}

// cmp96 compares two mul96 products, returning -1, 0 or +1.
func cmp96(ahi int64, alo uint32, bhi int64, blo uint32) int {
	switch {
	case ahi < bhi:
		return -1
	case ahi > bhi:
		return 1
	case alo < blo:
		return -1
	case alo > blo:
		return 1
	}
	return 0
}

// RateCmp compares f and other by feerate only, via the exact cross
// products f.Fee*other.Size and other.Fee*f.Size. Equal feerates with
// different sizes compare equal; the empty FeeFrac compares equal to
// everything (callers that care must check IsEmpty themselves).
func (f FeeFrac) RateCmp(other FeeFrac) int {
	ahi, alo := mul96(f.Fee, other.Size)
	bhi, blo := mul96(other.Fee, f.Size)
	return cmp96(ahi, alo, bhi, blo)
}

// RateLess reports whether f has strictly lower feerate than other.
// Always false if either is empty.
func (f FeeFrac) RateLess(other FeeFrac) bool {
	return f.RateCmp(other) < 0
}

// RateGreater reports whether f has strictly higher feerate than other.
// Always false if either is empty.
func (f FeeFrac) RateGreater(other FeeFrac) bool {
	return f.RateCmp(other) > 0
}

// Cmp is the total order: by feerate via cross products, ties broken by
// decreasing size. The empty FeeFrac is the maximum.
func (f FeeFrac) Cmp(other FeeFrac) int {
	if c := f.RateCmp(other); c != 0 {
		return c
	}
	switch {
	case other.Size < f.Size:
		return -1
	case other.Size > f.Size:
		return 1
	}
	return 0
}

// Less reports whether f sorts strictly before other in the total order.
func (f FeeFrac) Less(other FeeFrac) bool {
	return f.Cmp(other) < 0
}
