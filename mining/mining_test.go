package mining

import (
	"math/rand"
	"testing"

	"github.com/bitcoinfees/feecast/feefrac"
	"github.com/bitcoinfees/feecast/testutil"
)

func tx(id string, fee int64, vsize int32, parents ...string) *Tx {
	return &Tx{Txid: id, Fee: fee, VSize: vsize, Parents: parents}
}

func TestLinearizeIndependent(t *testing.T) {
	pool := []*Tx{
		tx("a", 1000, 100),
		tx("b", 5000, 100),
		tx("c", 3000, 100),
	}
	r := Linearize(pool)

	ref := []feefrac.FeeFrac{{Fee: 5000, Size: 100}, {Fee: 3000, Size: 100}, {Fee: 1000, Size: 100}}
	if err := testutil.CheckEqual(r.Chunks, ref); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(r.FirstTxids, []string{"b", "c", "a"}); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(r.Order, map[string]int{"b": 0, "c": 1, "a": 2}); err != nil {
		t.Error(err)
	}
}

func TestLinearizeChildPaysForParent(t *testing.T) {
	// The child's fee lifts its cheap parent above the unrelated mid-fee
	// transaction.
	pool := []*Tx{
		tx("parent", 100, 100),
		tx("child", 9900, 100, "parent"),
		tx("other", 4000, 100),
	}
	r := Linearize(pool)

	ref := []feefrac.FeeFrac{{Fee: 10000, Size: 200}, {Fee: 4000, Size: 100}}
	if err := testutil.CheckEqual(r.Chunks, ref); err != nil {
		t.Error(err)
	}
	// Within the package the parent is included first.
	if err := testutil.CheckEqual(r.FirstTxids, []string{"parent", "other"}); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(r.Order, map[string]int{"parent": 0, "child": 0, "other": 1}); err != nil {
		t.Error(err)
	}
}

func TestLinearizeLowFeeParentDeferred(t *testing.T) {
	// A low-fee child does not drag its parent down: the parent alone is
	// the better package and forms its own chunk.
	pool := []*Tx{
		tx("parent", 5000, 100),
		tx("child", 100, 100, "parent"),
	}
	r := Linearize(pool)

	ref := []feefrac.FeeFrac{{Fee: 5000, Size: 100}, {Fee: 100, Size: 100}}
	if err := testutil.CheckEqual(r.Chunks, ref); err != nil {
		t.Error(err)
	}
}

func TestLinearizeOutsideParentsIgnored(t *testing.T) {
	pool := []*Tx{
		tx("a", 2000, 100, "confirmed-elsewhere"),
		tx("b", 1000, 100),
	}
	r := Linearize(pool)
	if err := testutil.CheckEqual(len(r.Chunks), 2); err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(r.Chunks[0], feefrac.FeeFrac{Fee: 2000, Size: 100}); err != nil {
		t.Error(err)
	}
}

func TestLinearizeChunkFeeratesNonIncreasing(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pool := randomPool(rng, 60)
	r := Linearize(pool)

	for i := 1; i < len(r.Chunks); i++ {
		if r.Chunks[i-1].RateLess(r.Chunks[i]) {
			t.Fatalf("chunk %d feerate %v exceeds chunk %d feerate %v",
				i, r.Chunks[i], i-1, r.Chunks[i-1])
		}
	}

	// Every chunk prefix must be ancestor-closed.
	for _, txc := range pool {
		for _, parent := range txc.Parents {
			pidx, ok := r.Order[parent]
			if !ok {
				continue
			}
			if pidx > r.Order[txc.Txid] {
				t.Fatalf("parent %s in chunk %d after child %s in chunk %d",
					parent, pidx, txc.Txid, r.Order[txc.Txid])
			}
		}
	}
}

func TestLinearizeDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	pool := randomPool(rng, 40)
	ref := Linearize(pool)

	for i := 0; i < 10; i++ {
		shuffled := append([]*Tx(nil), pool...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		r := Linearize(shuffled)
		if err := testutil.CheckEqual(r.Chunks, ref.Chunks); err != nil {
			t.Fatal(err)
		}
		if err := testutil.CheckEqual(r.Order, ref.Order); err != nil {
			t.Fatal(err)
		}
		if err := testutil.CheckEqual(r.FirstTxids, ref.FirstTxids); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLinearizeTieBreakByTxid(t *testing.T) {
	// Identical packages: selection runs in ascending txid order.
	pool := []*Tx{
		tx(testutil.Txid(2), 1000, 100),
		tx(testutil.Txid(1), 1000, 100),
		tx(testutil.Txid(3), 1000, 100),
	}
	r := Linearize(pool)
	ref := []string{testutil.Txid(1), testutil.Txid(2), testutil.Txid(3)}
	if err := testutil.CheckEqual(r.FirstTxids, ref); err != nil {
		t.Error(err)
	}
}

// randomPool generates a pool where each tx has a chance of spending from
// an earlier one.
func randomPool(rng *rand.Rand, n int) []*Tx {
	pool := make([]*Tx, n)
	for i := range pool {
		var parents []string
		if i > 0 && rng.Intn(3) == 0 {
			parents = append(parents, testutil.Txid(rng.Intn(i)))
		}
		pool[i] = &Tx{
			Txid:    testutil.Txid(i),
			Fee:     rng.Int63n(50000) + 1,
			VSize:   rng.Int31n(900) + 100,
			Parents: parents,
		}
	}
	return pool
}
