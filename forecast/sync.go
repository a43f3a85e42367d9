package forecast

import "sync"

// blockInfo records whether one connected block matched the node's view of
// the mempool closely enough.
type blockInfo struct {
	height int64
	synced bool
}

// SyncTracker derives the "roughly synced" flag from the last three block
// events: true iff those heights form a contiguous run and, for each of
// them, both the weight of mempool transactions that ended up in the block
// and the weight of expected-template transactions that actually appeared
// exceeded half the block weight. Mempool-based forecasts are unreliable
// while the flag is false.
type SyncTracker struct {
	mux sync.RWMutex
	top [3]blockInfo
}

func NewSyncTracker() *SyncTracker {
	return &SyncTracker{}
}

// OnBlockConnected updates the window. A block that skips a height or
// arrives out of order resets the window to just the new block.
func (s *SyncTracker) OnBlockConnected(ev *BlockEvent) {
	info := blockInfo{height: ev.Height, synced: blockMatchedMempool(ev)}

	s.mux.Lock()
	defer s.mux.Unlock()
	if s.top[0].height != 0 && ev.Height != s.top[0].height+1 {
		s.top = [3]blockInfo{info, {}, {}}
		return
	}
	s.top[2] = s.top[1]
	s.top[1] = s.top[0]
	s.top[0] = info
}

// RoughlySynced reports whether the tracked window shows the mempool in
// step with recent blocks.
func (s *SyncTracker) RoughlySynced() bool {
	s.mux.RLock()
	defer s.mux.RUnlock()
	for i, info := range s.top {
		if info.height == 0 || !info.synced {
			return false
		}
		if i > 0 && s.top[i-1].height != info.height+1 {
			return false
		}
	}
	return true
}

func blockMatchedMempool(ev *BlockEvent) bool {
	if ev.BlockWeight <= 0 {
		return false
	}

	inBlock := make(map[string]bool, len(ev.BlockTxids))
	for _, txid := range ev.BlockTxids {
		inBlock[txid] = true
	}

	var removedWeight int64
	for _, tx := range ev.Removed {
		removedWeight += int64(tx.VSize) * WitnessScaleFactor
	}

	var expectedSeenWeight int64
	for _, tx := range ev.Expected {
		if inBlock[tx.Txid] {
			expectedSeenWeight += int64(tx.VSize) * WitnessScaleFactor
		}
	}

	half := ev.BlockWeight / 2
	return removedWeight > half && expectedSeenWeight > half
}
