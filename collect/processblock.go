package collect

import (
	"log"
	"sort"

	"github.com/bitcoinfees/feecast/forecast"
	"github.com/bitcoinfees/feecast/mining"
)

// deriveBlockEvents builds one BlockEvent per block between the two
// snapshots. The working copy of prev is advanced block by block: a
// block's removed set is the working mempool intersected with the block's
// txids, and its expected set is the next-block template linearized from
// the working mempool just before that block.
func deriveBlockEvents(prev, curr *MempoolState, getBlock BlockGetter, logger *log.Logger) ([]*forecast.BlockEvent, error) {
	if curr.Height <= prev.Height {
		panic("deriveBlockEvents: must have curr.Height > prev.Height")
	}
	work := prev.Copy() // work gets mutated

	events := make([]*forecast.BlockEvent, 0, curr.Height-prev.Height)
	for height := prev.Height + 1; height <= curr.Height; height++ {
		block, err := getBlock(height)
		if err != nil {
			return nil, err
		}

		blockTxids := block.Txids()
		sort.Strings(blockTxids)

		expected := expectedTemplate(work)

		var removed []*mining.Tx
		for txid, entry := range work.Entries {
			if !containsString(blockTxids, txid) {
				continue
			}
			removed = append(removed, &mining.Tx{
				Txid:    txid,
				Fee:     entry.Fee(),
				VSize:   entry.VSize(),
				Time:    entry.Time(),
				Parents: entry.Depends(),
			})
			delete(work.Entries, txid)
		}
		sort.Slice(removed, func(i, j int) bool { return removed[i].Txid < removed[j].Txid })

		logger.Printf("[DEBUG] Block %d: %d of %d txs taken from mempool, weight %d",
			height, len(removed), len(blockTxids), block.Weight())

		events = append(events, &forecast.BlockEvent{
			Height:      height,
			Time:        curr.Time,
			Removed:     removed,
			Expected:    expected,
			BlockTxids:  blockTxids,
			BlockWeight: block.Weight(),
		})
	}
	return events, nil
}

// expectedTemplate returns the first block's worth of the linearization of
// state: the transactions the node expected the next block to include.
func expectedTemplate(state *MempoolState) []forecast.TxWeight {
	r := mining.Linearize(state.MiningPool())

	// Find how many leading chunks fit one block.
	var (
		weight int64
		cut    = len(r.Stats)
	)
	for i, s := range r.Stats {
		weight += int64(s.VSize) * forecast.WitnessScaleFactor
		if weight > forecast.DefaultBlockMaxWeight {
			cut = i
			break
		}
	}

	var expected []forecast.TxWeight
	for txid, chunk := range r.Order {
		if chunk < cut {
			entry := state.Entries[txid]
			expected = append(expected, forecast.TxWeight{Txid: txid, VSize: entry.VSize()})
		}
	}
	sort.Slice(expected, func(i, j int) bool { return expected[i].Txid < expected[j].Txid })
	return expected
}

// containsString tests if t is in (sorted) s.
func containsString(s []string, t string) bool {
	i := sort.SearchStrings(s, t)
	return i < len(s) && s[i] == t
}
