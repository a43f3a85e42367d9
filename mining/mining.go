/*
Package mining linearizes a set of mempool transactions into the order a
rational miner would include them.

The input is a transaction graph: fees, virtual sizes and parent edges. The
output is a sequence of "chunks": ancestor-closed packages whose aggregate
feerates are non-increasing. Each round the linearizer picks the candidate
package (a transaction together with all of its not-yet-selected in-pool
ancestors) with the best aggregate FeeFrac, so a high-fee child pulls its
low-fee parents into an earlier chunk (child-pays-for-parent).

The feerate forecasters consume the chunk stream two ways: as (feerate,
vsize) statistics for percentile calculations, and as an inclusion order
mapping each transaction to its chunk.
*/
package mining

import (
	"sort"

	"github.com/bitcoinfees/feecast/feefrac"
)

// Tx is a mempool transaction as seen by the linearizer. Parents lists the
// txids this transaction spends from; ids that do not resolve to a pool
// member are treated as already confirmed and ignored.
type Tx struct {
	Txid    string   `json:"txid"`
	Fee     int64    `json:"fee"`
	VSize   int32    `json:"vsize"`
	Time    int64    `json:"time"` // arrival time, Unix seconds
	Parents []string `json:"depends"`
}

// FeeStat is the aggregate feerate and virtual size of one chunk.
type FeeStat struct {
	FeeRate feefrac.FeeRate `json:"feerate"`
	VSize   int32           `json:"vsize"`
}

// Result is a linearization. Chunks, Stats and FirstTxids are parallel:
// chunk i has aggregate Chunks[i], feerate/vsize view Stats[i], and
// FirstTxids[i] is the txid appearing first within the chunk. Order maps
// every input txid to its chunk index.
type Result struct {
	Chunks     []feefrac.FeeFrac
	Stats      []FeeStat
	FirstTxids []string
	Order      map[string]int
}

// Linearize orders pool into chunks. The selection is deterministic: when
// two candidate packages have identical aggregate FeeFracs, the one whose
// sponsor transaction has the smaller txid is taken first.
func Linearize(pool []*Tx) *Result {
	n := len(pool)
	result := &Result{Order: make(map[string]int, n)}
	if n == 0 {
		return result
	}

	byID := make(map[string]*Tx, n)
	for _, tx := range pool {
		byID[tx.Txid] = tx
	}
	n = len(byID)

	txids := make([]string, 0, n)
	for txid := range byID {
		txids = append(txids, txid)
	}
	sort.Strings(txids)

	ancestry := ancestorsAndDescendants(byID, txids)

	// Each candidate package is a transaction plus its unselected
	// ancestors. Aggregates are maintained incrementally: when a chunk is
	// selected, its members' fees and sizes are subtracted from every
	// unselected descendant's aggregate.
	agg := make(map[string]feefrac.FeeFrac, n)
	for txid, anc := range ancestry {
		var sum feefrac.FeeFrac
		for member := range anc.Ancestors {
			t := byID[member]
			sum = sum.Add(feefrac.FeeFrac{Fee: t.Fee, Size: t.VSize})
		}
		agg[txid] = sum
	}

	selected := make(map[string]bool, n)
	for len(selected) < n {
		best := ""
		var bestAgg feefrac.FeeFrac
		for _, txid := range txids {
			if selected[txid] {
				continue
			}
			if best == "" || bestAgg.Less(agg[txid]) {
				best, bestAgg = txid, agg[txid]
			}
		}

		members := make([]string, 0, 4)
		for member := range ancestry[best].Ancestors {
			if !selected[member] {
				members = append(members, member)
			}
		}
		chunkOrder(members, byID)

		idx := len(result.Chunks)
		for _, member := range members {
			selected[member] = true
			result.Order[member] = idx
			frac := feefrac.FeeFrac{Fee: byID[member].Fee, Size: byID[member].VSize}
			for desc := range ancestry[member].Descendants {
				if !selected[desc] {
					agg[desc] = agg[desc].Sub(frac)
				}
			}
		}

		result.Chunks = append(result.Chunks, bestAgg)
		result.Stats = append(result.Stats, FeeStat{
			FeeRate: bestAgg.Rate(),
			VSize:   bestAgg.Size,
		})
		result.FirstTxids = append(result.FirstTxids, members[0])

		// A package taken after its ancestors' chunk can pay a higher
		// feerate than that chunk; merge it backwards so chunk feerates
		// stay non-increasing.
		for k := len(result.Chunks) - 1; k > 0 && result.Chunks[k-1].RateLess(result.Chunks[k]); k-- {
			merged := result.Chunks[k-1].Add(result.Chunks[k])
			for txid, c := range result.Order {
				if c == k {
					result.Order[txid] = k - 1
				}
			}
			result.Chunks = append(result.Chunks[:k-1], merged)
			result.Stats = append(result.Stats[:k-1], FeeStat{FeeRate: merged.Rate(), VSize: merged.Size})
			result.FirstTxids = result.FirstTxids[:k]
		}
	}
	return result
}

// chunkOrder sorts the members of one chunk topologically: parents before
// children, ties by ascending txid.
func chunkOrder(members []string, byID map[string]*Tx) {
	inChunk := make(map[string]bool, len(members))
	for _, txid := range members {
		inChunk[txid] = true
	}

	indegree := make(map[string]int, len(members))
	children := make(map[string][]string, len(members))
	for _, txid := range members {
		for _, parent := range byID[txid].Parents {
			if inChunk[parent] {
				indegree[txid]++
				children[parent] = append(children[parent], txid)
			}
		}
	}

	var ready []string
	for _, txid := range members {
		if indegree[txid] == 0 {
			ready = append(ready, txid)
		}
	}
	sort.Strings(ready)

	ordered := members[:0]
	for len(ready) > 0 {
		txid := ready[0]
		ready = ready[1:]
		ordered = append(ordered, txid)
		for _, child := range children[txid] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = insertSorted(ready, child)
			}
		}
	}
}

func insertSorted(s []string, v string) []string {
	i := sort.SearchStrings(s, v)
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
