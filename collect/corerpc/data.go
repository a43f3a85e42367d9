package corerpc

import (
	"github.com/bitcoinfees/feecast/collect"
)

const coin = 100000000

// MempoolEntry is one getrawmempool (verbose) entry.
type MempoolEntry struct {
	VSize_   int32    `json:"vsize"`
	Weight_  int64    `json:"weight"`
	Time_    int64    `json:"time"`
	Depends_ []string `json:"depends"`
	Fees     struct {
		Base float64 `json:"base"` // BTC
	} `json:"fees"`
}

func (m *MempoolEntry) VSize() int32 {
	return m.VSize_
}

// Fee returns the base fee in satoshis.
func (m *MempoolEntry) Fee() int64 {
	return int64(m.Fees.Base*coin + 0.5)
}

func (m *MempoolEntry) Time() int64 {
	return m.Time_
}

// Depends returns a copy of the in-mempool parent txids.
func (m *MempoolEntry) Depends() []string {
	d := make([]string, len(m.Depends_))
	copy(d, m.Depends_)
	return d
}

// mempoolInfo is the subset of getmempoolinfo we need.
type mempoolInfo struct {
	Loaded bool `json:"loaded"`
}

type block struct {
	Height_ int64    `json:"height"`
	Weight_ int64    `json:"weight"`
	Txids_  []string `json:"tx"`
}

func (b *block) Height() int64 {
	return b.Height_
}

func (b *block) Weight() int64 {
	return b.Weight_
}

// Txids returns a copy of the block txids.
func (b *block) Txids() []string {
	txids := make([]string, len(b.Txids_))
	copy(txids, b.Txids_)
	return txids
}

var _ collect.MempoolEntry = (*MempoolEntry)(nil)
var _ collect.Block = (*block)(nil)
