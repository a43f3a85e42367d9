/*
Package collect feeds the fee estimation engine from a running node.

A Collector polls the node's mempool on a fixed period through
getrawmempool-style getters. When the chain height increases it derives,
for each new block, the event the forecasters consume: which mempool
transactions the block confirmed, which transactions the node expected the
block to contain, and the block's actual contents. Events are published to
the host's EventBus on the poll goroutine, in height order.

The Collector also implements the narrow read surface the forecasters
require: chain tip height, mempool load state, entry lookup, and the
next-block linearization of the current snapshot.
*/
package collect

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/bitcoinfees/feecast/forecast"
	"github.com/bitcoinfees/feecast/mining"
)

type Config struct {
	PollPeriod int `yaml:"pollperiod" json:"pollperiod"`

	GetState MempoolStateGetter `yaml:"-" json:"-"`
	GetBlock BlockGetter        `yaml:"-" json:"-"`
	Bus      *forecast.EventBus `yaml:"-" json:"-"`
	Logger   *log.Logger        `yaml:"-" json:"-"`
}

// NOTE: the E channel must be serviced.
type Collector struct {
	E <-chan error

	state *MempoolState
	cfg   Config

	done chan struct{}
	mux  sync.RWMutex
}

func NewCollector(cfg Config) *Collector {
	return &Collector{
		cfg:  cfg,
		done: make(chan struct{}),
	}
}

// State returns the latest snapshot; nil while the node is unreachable.
func (c *Collector) State() *MempoolState {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.state
}

func (c *Collector) setState(state *MempoolState) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.state = state
}

// TipHeight implements forecast.Chain.
func (c *Collector) TipHeight() int64 {
	if state := c.State(); state != nil {
		return state.Height
	}
	return 0
}

// LoadTried implements forecast.Mempool.
func (c *Collector) LoadTried() bool {
	state := c.State()
	return state != nil && state.Loaded
}

// Entry implements forecast.Mempool.
func (c *Collector) Entry(txid string) (forecast.Entry, bool) {
	state := c.State()
	if state == nil {
		return nil, false
	}
	entry, ok := state.Entries[txid]
	if !ok {
		return nil, false
	}
	return entryTime(entry.Time()), true
}

type entryTime int64

func (e entryTime) Time() int64 {
	return int64(e)
}

// NextBlockLinearization implements forecast.NextBlockSource: it
// linearizes the current snapshot and truncates the package stream past
// the weight the mempool forecasters can use. The forecaster-side cache
// absorbs repeat calls.
func (c *Collector) NextBlockLinearization() ([]mining.FeeStat, []string, error) {
	state := c.State()
	if state == nil {
		return nil, nil, fmt.Errorf("mempool state not available")
	}
	r := mining.Linearize(state.MiningPool())

	maxWeight := int64(forecast.MaxBlockWeight) * forecast.MempoolForecastMaxTarget
	var weight int64
	for i, s := range r.Stats {
		weight += int64(s.VSize) * forecast.WitnessScaleFactor
		if weight > maxWeight {
			return r.Stats[:i], r.FirstTxids[:i], nil
		}
	}
	return r.Stats, r.FirstTxids, nil
}

func (c *Collector) Run() error {
	// Initial mempool state
	if s, err := c.cfg.GetState(); err != nil {
		return err
	} else {
		c.setState(s)
	}

	ec := make(chan error)
	c.E = ec
	go c.run(ec)
	return nil
}

func (c *Collector) Stop() {
	if err := c.closeDone(); err != nil {
		return
	}
	// Block until the err chan is closed when run terminates.
	for range c.E {
	}
}

func (c *Collector) run(ec chan<- error) {
	defer close(ec)
	defer c.setState(nil)

	logger := c.cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	ticker := time.NewTicker(time.Duration(c.cfg.PollPeriod) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-c.done:
			return
		}

		curr, err := c.cfg.GetState()
		if err != nil {
			select {
			case ec <- fmt.Errorf("GetState: %v", err):
				c.setState(nil)
				continue
			case <-c.done:
				return
			}
		}

		prev := c.State()
		c.setState(curr)
		if prev == nil || prev.Height >= curr.Height {
			continue
		}

		// Block height has increased; derive and publish the block events.
		events, err := deriveBlockEvents(prev, curr, c.cfg.GetBlock, logger)
		if err != nil {
			select {
			case ec <- fmt.Errorf("deriveBlockEvents: %v", err):
				continue
			case <-c.done:
				return
			}
		}
		for _, ev := range events {
			c.cfg.Bus.Publish(ev)
		}
	}
}

func (c *Collector) closeDone() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	select {
	case <-c.done: // Already closed
		return fmt.Errorf("Collector.done already closed")
	default:
		close(c.done)
		return nil
	}
}
