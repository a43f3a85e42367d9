package mining

import (
	"testing"

	"github.com/bitcoinfees/feecast/testutil"
)

func TestAncestryUniqueTransactions(t *testing.T) {
	var pool []*Tx
	for i := 0; i < 20; i++ {
		pool = append(pool, tx(testutil.Txid(i), 1000, 100))
	}

	ancestry := AncestorsAndDescendants(pool)
	if err := testutil.CheckEqual(len(ancestry), len(pool)); err != nil {
		t.Fatal(err)
	}
	for _, txc := range pool {
		a, ok := ancestry[txc.Txid]
		if !ok {
			t.Fatalf("missing ancestry for %s", txc.Txid)
		}
		if len(a.Ancestors) != 1 || len(a.Descendants) != 1 {
			t.Errorf("%s: expected singleton sets, got %d ancestors, %d descendants",
				txc.Txid, len(a.Ancestors), len(a.Descendants))
		}
		if _, ok := a.Ancestors[txc.Txid]; !ok {
			t.Errorf("%s missing from own ancestor set", txc.Txid)
		}
		if _, ok := a.Descendants[txc.Txid]; !ok {
			t.Errorf("%s missing from own descendant set", txc.Txid)
		}
	}
}

func TestAncestryLinearClusters(t *testing.T) {
	// Four linear clusters:
	//
	//	A     B     C    D
	//	|     |     |    |
	//	E     H     J    K
	//	|     |
	//	F     I
	//	|
	//	G
	pool := []*Tx{
		tx("A", 1000, 100),
		tx("B", 1000, 100),
		tx("C", 1000, 100),
		tx("D", 1000, 100),
		tx("E", 1000, 100, "A"),
		tx("F", 1000, 100, "E"),
		tx("G", 1000, 100, "F"),
		tx("H", 1000, 100, "B"),
		tx("I", 1000, 100, "H"),
		tx("J", 1000, 100, "C"),
		tx("K", 1000, 100, "D"),
	}

	ancestry := AncestorsAndDescendants(pool)
	if err := testutil.CheckEqual(len(ancestry), len(pool)); err != nil {
		t.Fatal(err)
	}

	checkSet := func(name string, got map[string]struct{}, want ...string) {
		t.Helper()
		if len(got) != len(want) {
			t.Errorf("%s: got %d members, want %d", name, len(got), len(want))
		}
		for _, txid := range want {
			if _, ok := got[txid]; !ok {
				t.Errorf("%s: missing %s", name, txid)
			}
		}
	}

	checkSet("ancestors(A)", ancestry["A"].Ancestors, "A")
	checkSet("descendants(A)", ancestry["A"].Descendants, "A", "E", "F", "G")
	checkSet("ancestors(G)", ancestry["G"].Ancestors, "G", "F", "E", "A")
	checkSet("descendants(G)", ancestry["G"].Descendants, "G")
	checkSet("ancestors(B)", ancestry["B"].Ancestors, "B")
	checkSet("descendants(B)", ancestry["B"].Descendants, "B", "H", "I")
	checkSet("ancestors(I)", ancestry["I"].Ancestors, "I", "H", "B")
	checkSet("descendants(J)", ancestry["J"].Descendants, "J")
	checkSet("ancestors(K)", ancestry["K"].Ancestors, "K", "D")
}

func TestAncestryDiamond(t *testing.T) {
	// A diamond: D spends from B and C, which both spend from A.
	pool := []*Tx{
		tx("A", 1000, 100),
		tx("B", 1000, 100, "A"),
		tx("C", 1000, 100, "A"),
		tx("D", 1000, 100, "B", "C"),
	}

	ancestry := AncestorsAndDescendants(pool)
	if err := testutil.CheckEqual(len(ancestry["D"].Ancestors), 4); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(len(ancestry["A"].Descendants), 4); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(len(ancestry["B"].Ancestors), 2); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(len(ancestry["B"].Descendants), 2); err != nil {
		t.Error(err)
	}
}
