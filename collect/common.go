package collect

import (
	"fmt"
	"sort"

	"github.com/bitcoinfees/feecast/mining"
)

// Block is a confirmed block as fetched from the node.
type Block interface {
	Height() int64
	Weight() int64
	Txids() []string
}

// MempoolEntry is one unconfirmed transaction as fetched from the node.
type MempoolEntry interface {
	VSize() int32
	Fee() int64 // satoshis
	Time() int64
	Depends() []string
}

type BlockGetter func(height int64) (Block, error)
type MempoolStateGetter func() (*MempoolState, error)

// MempoolState is one snapshot of the node's mempool.
type MempoolState struct {
	Height  int64                   `json:"height"`
	Entries map[string]MempoolEntry `json:"entries"`
	Time    int64                   `json:"time"`
	Loaded  bool                    `json:"loaded"`
}

func (s *MempoolState) Copy() *MempoolState {
	entries := make(map[string]MempoolEntry, len(s.Entries))
	for txid, entry := range s.Entries {
		entries[txid] = entry
	}
	return &MempoolState{
		Height:  s.Height,
		Entries: entries,
		Time:    s.Time,
		Loaded:  s.Loaded,
	}
}

// Sub returns the entries of s not present in t.
func (s *MempoolState) Sub(t *MempoolState) map[string]MempoolEntry {
	entries := make(map[string]MempoolEntry)
	for txid, entry := range s.Entries {
		if _, ok := t.Entries[txid]; !ok {
			entries[txid] = entry
		}
	}
	return entries
}

func (s *MempoolState) String() string {
	return fmt.Sprintf("MempoolState{height: %d, entries: %d}", s.Height, len(s.Entries))
}

// MiningPool converts the snapshot into the linearizer's input form, in a
// canonical txid order to make results deterministic. Parents that point
// outside the mempool are left in place; the linearizer ignores them.
func (s *MempoolState) MiningPool() []*mining.Tx {
	txids := make([]string, 0, len(s.Entries))
	for txid := range s.Entries {
		txids = append(txids, txid)
	}
	sort.Strings(txids)

	pool := make([]*mining.Tx, len(txids))
	for i, txid := range txids {
		entry := s.Entries[txid]
		pool[i] = &mining.Tx{
			Txid:    txid,
			Fee:     entry.Fee(),
			VSize:   entry.VSize(),
			Time:    entry.Time(),
			Parents: entry.Depends(),
		}
	}
	return pool
}
