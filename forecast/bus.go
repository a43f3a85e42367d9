package forecast

import (
	"sync"

	"github.com/bitcoinfees/feecast/mining"
)

// TxWeight identifies a transaction and its virtual size, used to weigh
// expected-versus-actual block contents.
type TxWeight struct {
	Txid  string `json:"txid"`
	VSize int32  `json:"vsize"`
}

// BlockEvent describes one connected block as observed by the host.
type BlockEvent struct {
	Height int64
	Time   int64 // local observation time, Unix seconds

	// Removed are the mempool transactions confirmed by this block, with
	// their fees, sizes, arrival times and in-mempool parents.
	Removed []*mining.Tx

	// Expected is the next-block template the node held just before the
	// block arrived.
	Expected []TxWeight

	// BlockTxids are all transaction ids in the connected block.
	BlockTxids []string

	// BlockWeight is the total weight of the connected block.
	BlockWeight int64
}

// BlockObserver receives block events. OnBlockConnected is invoked on the
// single ingest goroutine, in block height order; implementations must
// install their state updates before returning and must not block on
// caller-held locks.
type BlockObserver interface {
	OnBlockConnected(ev *BlockEvent)
}

// EventBus fans block events out to subscribed observers. The host owns
// the bus and publishes from its single event-ingest goroutine; delivery
// runs synchronously on that goroutine so that a query issued after
// Publish returns is guaranteed to observe the event's effects.
type EventBus struct {
	mux       sync.Mutex // guards observers
	deliver   sync.Mutex // serializes Publish
	observers []BlockObserver
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers o for block events. Observers are notified in
// subscription order.
func (b *EventBus) Subscribe(o BlockObserver) {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.observers = append(b.observers, o)
}

// Unsubscribe removes o. Safe to call for an observer that was never
// subscribed.
func (b *EventBus) Unsubscribe(o BlockObserver) {
	b.mux.Lock()
	defer b.mux.Unlock()
	for i, sub := range b.observers {
		if sub == o {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every observer, serially. Concurrent publishers
// are serialized by the bus, but the height-ordering guarantee holds only
// when a single goroutine publishes.
func (b *EventBus) Publish(ev *BlockEvent) {
	b.deliver.Lock()
	defer b.deliver.Unlock()

	b.mux.Lock()
	observers := make([]BlockObserver, len(b.observers))
	copy(observers, b.observers)
	b.mux.Unlock()

	for _, o := range observers {
		o.OnBlockConnected(ev)
	}
}
