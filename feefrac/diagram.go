package feefrac

import "sort"

// PartialOrder is the result of comparing two feerate diagrams. Unlike the
// FeeFrac total order, diagrams can cross and end up incomparable.
type PartialOrder int

const (
	Less PartialOrder = iota - 1
	Equal
	Greater
	Unordered
)

func (p PartialOrder) String() string {
	switch p {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	}
	return "unordered"
}

// BuildDiagram sorts chunks in place by descending total order and returns
// the cumulative feerate diagram: point 0 is {0, 0} and point i is the
// running sum of the first i chunks. An empty chunk sorts first (it acts as
// the infinite-feerate endpoint); within equal feerates the smaller size
// comes first.
func BuildDiagram(chunks []FeeFrac) []FeeFrac {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[j].Less(chunks[i])
	})

	diagram := make([]FeeFrac, len(chunks)+1)
	for i, chunk := range chunks {
		diagram[i+1] = diagram[i].Add(chunk)
	}
	return diagram
}

// CompareDiagrams compares two feerate diagrams. Both must start with a
// zero point and have strictly increasing sizes thereafter; the shorter one
// is implicitly extended with a horizontal line at its final fee.
//
// The sweep walks both staircases by increasing size. At each unprocessed
// point P of one diagram, let A and B be the surrounding points of the
// other; P above the segment AB means P's side pays strictly more
// cumulative fee at that size. The result is Less or Greater when exactly
// one side is ever strictly better, Equal when neither, Unordered when
// both.
func CompareDiagrams(dia0, dia1 []FeeFrac) PartialOrder {
	if len(dia0) == 0 || len(dia1) == 0 {
		panic("feefrac: diagrams must be non-empty")
	}
	if !dia0[0].IsEmpty() || !dia1[0].IsEmpty() {
		panic("feefrac: diagrams must start at (0, 0)")
	}

	dias := [2][]FeeFrac{dia0, dia1}
	next := [2]int{1, 1}
	better := [2]bool{}

	for next[0] < len(dias[0]) && next[1] < len(dias[1]) {
		// The diagram whose next point has the smaller size is processed
		// first.
		unproc := 0
		if dias[0][next[0]].Size > dias[1][next[1]].Size {
			unproc = 1
		}
		other := 1 - unproc

		p := dias[unproc][next[unproc]]
		a := dias[other][next[other]-1]
		b := dias[other][next[other]]

		// Compare the direction coefficients of AP and AB as feerates: if
		// AP is steeper, P lies above the other diagram's segment.
		coefAB := b.Sub(a)
		coefAP := p.Sub(a)
		switch coefAP.RateCmp(coefAB) {
		case 1:
			better[unproc] = true
		case -1:
			better[other] = true
		}

		next[unproc]++
		if b.Size == p.Size {
			next[other]++
		}
	}

	// One diagram may have points left; compare them against a horizontal
	// extension of the other's final point, i.e. by the sign of the
	// remaining fee difference.
	long := 0
	if next[1] != len(dias[1]) {
		long = 1
	}
	short := 1 - long
	a := dias[short][next[short]-1]
	for ; next[long] < len(dias[long]); next[long]++ {
		p := dias[long][next[long]]
		switch {
		case p.Fee > a.Fee:
			better[long] = true
		case p.Fee < a.Fee:
			better[short] = true
		}
	}

	switch {
	case better[0] && better[1]:
		return Unordered
	case better[0]:
		return Greater
	case better[1]:
		return Less
	}
	return Equal
}
