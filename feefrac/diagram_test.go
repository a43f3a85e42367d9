package feefrac

import (
	"math/rand"
	"testing"

	"github.com/bitcoinfees/feecast/testutil"
)

func TestBuildDiagram(t *testing.T) {
	p1 := FeeFrac{1000, 100}
	empty := FeeFrac{}
	zeroFee := FeeFrac{0, 1}
	oversized1 := FeeFrac{4611686000000, 4000000}
	oversized2 := FeeFrac{184467440000000, 100000}

	chunks := []FeeFrac{p1, zeroFee, empty, oversized1, oversized2}
	rng := rand.New(rand.NewSource(17))
	rng.Shuffle(len(chunks), func(i, j int) {
		chunks[i], chunks[j] = chunks[j], chunks[i]
	})

	diagram := BuildDiagram(chunks)
	if err := testutil.CheckEqual(len(diagram), 6); err != nil {
		t.Fatal(err)
	}

	// Chunks are reordered largest-first; the empty chunk is the
	// infinite-feerate endpoint and comes first.
	sorted := []FeeFrac{empty, oversized2, oversized1, p1, zeroFee}
	if err := testutil.CheckEqual(chunks, sorted); err != nil {
		t.Error(err)
	}

	ref := []FeeFrac{
		{},
		{},
		oversized2,
		oversized2.Add(oversized1),
		oversized2.Add(oversized1).Add(p1),
		oversized2.Add(oversized1).Add(p1).Add(zeroFee),
	}
	if err := testutil.CheckEqual(diagram, ref); err != nil {
		t.Error(err)
	}

	// Size must be non-decreasing and fee increments non-negative.
	for i := 1; i < len(diagram); i++ {
		if diagram[i].Size < diagram[i-1].Size {
			t.Errorf("diagram size decreased at point %d", i)
		}
		if diagram[i].Fee < diagram[i-1].Fee {
			t.Errorf("diagram fee decreased at point %d", i)
		}
	}
}

func TestBuildDiagramPermutationInvariant(t *testing.T) {
	base := []FeeFrac{{300, 100}, {250, 50}, {100, 100}, {100, 50}, {0, 10}}
	ref := BuildDiagram(append([]FeeFrac(nil), base...))

	rng := rand.New(rand.NewSource(23))
	for i := 0; i < 20; i++ {
		chunks := append([]FeeFrac(nil), base...)
		rng.Shuffle(len(chunks), func(i, j int) {
			chunks[i], chunks[j] = chunks[j], chunks[i]
		})
		if err := testutil.CheckEqual(BuildDiagram(chunks), ref); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCompareDiagrams(t *testing.T) {
	// Test #1: a diagram equals itself.
	d1 := BuildDiagram([]FeeFrac{{300, 100}, {200, 100}, {100, 100}})
	if err := testutil.CheckEqual(CompareDiagrams(d1, d1), Equal); err != nil {
		t.Error(err)
	}

	// Test #2: uniformly higher fees dominate, and the comparison is
	// antisymmetric.
	d2 := BuildDiagram([]FeeFrac{{400, 100}, {250, 100}, {150, 100}})
	if err := testutil.CheckEqual(CompareDiagrams(d2, d1), Greater); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(CompareDiagrams(d1, d2), Less); err != nil {
		t.Error(err)
	}

	// Test #3: same total fee and size but a steeper start. d3 is strictly
	// better at size 100 and equal at the end, so it dominates.
	d3 := BuildDiagram([]FeeFrac{{500, 100}, {100, 100}})
	d4 := BuildDiagram([]FeeFrac{{300, 100}, {300, 100}})
	if err := testutil.CheckEqual(CompareDiagrams(d3, d4), Greater); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(CompareDiagrams(d4, d3), Less); err != nil {
		t.Error(err)
	}

	// Test #4: crossing diagrams are unordered. d5 is better early, d6 has
	// more total fee.
	d5 := BuildDiagram([]FeeFrac{{500, 100}, {10, 100}})
	d6 := BuildDiagram([]FeeFrac{{300, 100}, {300, 100}})
	if err := testutil.CheckEqual(CompareDiagrams(d5, d6), Unordered); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(CompareDiagrams(d6, d5), Unordered); err != nil {
		t.Error(err)
	}

	// Test #5: unequal lengths; the shorter diagram is extended with a
	// horizontal line. Extra zero-fee tail chunks change nothing.
	d7 := BuildDiagram([]FeeFrac{{300, 100}, {200, 100}, {100, 100}, {0, 50}})
	if err := testutil.CheckEqual(CompareDiagrams(d7, d1), Equal); err != nil {
		t.Error(err)
	}
	// A fee-bearing tail beyond the short diagram's end is strictly
	// better.
	d8 := BuildDiagram([]FeeFrac{{300, 100}, {200, 100}, {100, 100}, {50, 50}})
	if err := testutil.CheckEqual(CompareDiagrams(d8, d1), Greater); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(CompareDiagrams(d1, d8), Less); err != nil {
		t.Error(err)
	}
}

func TestCompareDiagramsAntisymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	for i := 0; i < 50; i++ {
		d1 := randomDiagram(rng)
		d2 := randomDiagram(rng)
		c12 := CompareDiagrams(d1, d2)
		c21 := CompareDiagrams(d2, d1)
		switch c12 {
		case Less:
			if c21 != Greater {
				t.Fatalf("compare(d1,d2)=%v but compare(d2,d1)=%v", c12, c21)
			}
		case Greater:
			if c21 != Less {
				t.Fatalf("compare(d1,d2)=%v but compare(d2,d1)=%v", c12, c21)
			}
		default:
			if c21 != c12 {
				t.Fatalf("compare(d1,d2)=%v but compare(d2,d1)=%v", c12, c21)
			}
		}
		if err := testutil.CheckEqual(CompareDiagrams(d1, d1), Equal); err != nil {
			t.Fatal(err)
		}
	}
}

func randomDiagram(rng *rand.Rand) []FeeFrac {
	n := rng.Intn(5) + 1
	chunks := make([]FeeFrac, n)
	for i := range chunks {
		chunks[i] = FeeFrac{rng.Int63n(100000), rng.Int31n(5000) + 1}
	}
	return BuildDiagram(chunks)
}
