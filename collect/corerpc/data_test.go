package corerpc

import (
	"encoding/json"
	"testing"

	"github.com/bitcoinfees/feecast/testutil"
)

const rawEntryJSON = `{
	"vsize": 141,
	"weight": 561,
	"time": 1700000123,
	"depends": ["aa", "bb"],
	"fees": {"base": 0.00010010}
}`

func TestMempoolEntry(t *testing.T) {
	entry := new(MempoolEntry)
	if err := json.Unmarshal([]byte(rawEntryJSON), entry); err != nil {
		t.Fatal(err)
	}

	if err := testutil.CheckEqual(entry.VSize(), int32(141)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(entry.Fee(), int64(10010)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(entry.Time(), int64(1700000123)); err != nil {
		t.Error(err)
	}

	d := entry.Depends()
	if err := testutil.CheckEqual(d, []string{"aa", "bb"}); err != nil {
		t.Error(err)
	}
	// Test that d is a copy
	d[0] = "mutated"
	if err := testutil.CheckEqual(entry.Depends()[0], "aa"); err != nil {
		t.Error(err)
	}
}

func TestBlock(t *testing.T) {
	raw := `{"height": 421074, "weight": 3992739, "tx": ["t1", "t2", "t3"]}`
	b := new(block)
	if err := json.Unmarshal([]byte(raw), b); err != nil {
		t.Fatal(err)
	}

	if err := testutil.CheckEqual(b.Height(), int64(421074)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(b.Weight(), int64(3992739)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(b.Txids(), []string{"t1", "t2", "t3"}); err != nil {
		t.Error(err)
	}
}
