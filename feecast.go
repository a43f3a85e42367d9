package main

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"

	col "github.com/bitcoinfees/feecast/collect"
	"github.com/bitcoinfees/feecast/db/bolt"
	"github.com/bitcoinfees/feecast/forecast"
	"github.com/bitcoinfees/feecast/mining"
)

type BlockPctDB interface {
	Put(entries []bolt.BlockEntry) error
	Get(start, end int64) ([]bolt.BlockEntry, error)
	Delete(start, end int64) error
	Close() error
}

// FeeCast wires the fee estimation engine to a running node: the collector
// polls the node and publishes block events on the bus, the forecasters
// consume them, and the estimator serves queries.
type FeeCast struct {
	collector *col.Collector
	bus       *forecast.EventBus
	estimator *forecast.Estimator
	syncer    *forecast.SyncTracker
	ntime     *forecast.NTimeForecaster
	blkdb     BlockPctDB
	cfg       FeeCastConfig

	done chan struct{}
	wg   sync.WaitGroup
	mux  sync.Mutex
}

type FeeCastConfig struct {
	Collect         col.Config `yaml:"collect" json:"collect"`
	WindowBlocks    int        `yaml:"windowblocks" json:"windowblocks"`
	WindowMaxTarget int        `yaml:"windowmaxtarget" json:"windowmaxtarget"`
	BlockLogBlocks  int64      `yaml:"blocklogblocks" json:"blocklogblocks"`

	logger *log.Logger `yaml:"-" json:"-"`
}

func NewFeeCast(blkdb BlockPctDB, cfg FeeCastConfig) (*FeeCast, error) {
	if cfg.logger == nil {
		cfg.logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	logger := cfg.logger

	bus := forecast.NewEventBus()
	cfg.Collect.Bus = bus
	cfg.Collect.Logger = logger
	collector := col.NewCollector(cfg.Collect)

	syncer := forecast.NewSyncTracker()
	bus.Subscribe(syncer)

	// The linearization is the expensive step on the query path; time it.
	source := &timedSource{
		source: collector,
		timer:  metrics.NewRegisteredTimer("linearize", metrics.DefaultRegistry),
	}

	lastBlock := forecast.NewLastBlockForecaster(logger)
	bus.Subscribe(lastBlock)

	window := forecast.NewBlockWindowForecaster(cfg.WindowBlocks, cfg.WindowMaxTarget, logger)
	bus.Subscribe(window)

	ntime := forecast.NewNTimeForecaster(logger)
	bus.Subscribe(ntime)

	estimator := forecast.NewEstimator(logger)
	estimator.Register(forecast.NewMempoolForecaster(collector, collector, source, syncer, logger))
	estimator.Register(forecast.NewMempool10MinForecaster(collector, collector, source, syncer, logger))
	estimator.Register(lastBlock)
	estimator.Register(window)
	estimator.Register(ntime)

	s := &FeeCast{
		collector: collector,
		bus:       bus,
		estimator: estimator,
		syncer:    syncer,
		ntime:     ntime,
		blkdb:     blkdb,
		cfg:       cfg,
		done:      make(chan struct{}),
	}
	bus.Subscribe(&blockRecorder{feecast: s})
	return s, nil
}

func (s *FeeCast) Run() error {
	logger := s.cfg.logger
	s.wg.Add(1)
	defer logger.Println("FeeCast all stopped.")
	defer s.wg.Wait()
	defer s.wg.Done()
	defer s.blkdb.Close()

	logger.Printf("FeeCast v%s starting up..", version)
	if err := s.collector.Run(); err != nil {
		return err
	}
	defer s.collector.Stop()

	s.wg.Add(1)
	go s.loopTrackingStats(forecast.TrackingUpdateInterval)

	logger.Println("FeeCast startup complete.")
	for {
		select {
		case err := <-s.collector.E:
			logger.Println("[ERROR] Collector:", err)
		case <-s.done:
			return nil
		}
	}
}

func (s *FeeCast) Stop() {
	s.closeDone()
	s.wg.Wait()
}

// closeDone closes s.done in a concurrent-safe way.
func (s *FeeCast) closeDone() {
	s.mux.Lock()
	defer s.mux.Unlock()
	select {
	case <-s.done: // Already closed
	default:
		close(s.done)
	}
}

// loopTrackingStats ages the NTime tracking matrix once per interval.
func (s *FeeCast) loopTrackingStats(interval time.Duration) {
	defer s.wg.Done()
	defer s.cfg.logger.Println("Tracking stats loop stopped.")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.ntime.UpdateTrackingStats()
		case <-s.done:
			return
		}
	}
}

func (s *FeeCast) EstimateFee(target int) (forecast.Result, []string) {
	return s.estimator.Estimate(target)
}

func (s *FeeCast) Forecasts(target int) []forecast.Result {
	return s.estimator.All(target)
}

func (s *FeeCast) MaxTarget() int {
	return s.estimator.MaxTarget()
}

func (s *FeeCast) RoughlySynced() bool {
	return s.syncer.RoughlySynced()
}

func (s *FeeCast) State() *col.MempoolState {
	return s.collector.State()
}

// RecentBlocks returns the last n entries of the block percentile log.
func (s *FeeCast) RecentBlocks(n int64) ([]bolt.BlockEntry, error) {
	tip := s.collector.TipHeight()
	start := tip - n + 1
	if start < 0 {
		start = 0
	}
	return s.blkdb.Get(start, tip)
}

func (s *FeeCast) Status() map[string]string {
	status := make(map[string]string)

	if state := s.State(); state == nil {
		status["mempool"] = "Mempool state not available."
	} else if !state.Loaded {
		status["mempool"] = "Mempool not finished loading."
	} else {
		status["mempool"] = "OK"
	}

	if s.RoughlySynced() {
		status["sync"] = "OK"
	} else {
		status["sync"] = "Mempool not in sync with recent blocks."
	}

	if result, _ := s.EstimateFee(1); result.Empty() {
		status["result"] = "No estimate available."
	} else {
		status["result"] = "OK"
	}

	return status
}

// blockRecorder appends each connected block's linearization percentiles
// to the on-disk log and prunes entries past the retention horizon.
type blockRecorder struct {
	feecast *FeeCast
}

func (r *blockRecorder) OnBlockConnected(ev *forecast.BlockEvent) {
	s := r.feecast
	logger := s.cfg.logger

	lin := mining.Linearize(ev.Removed)
	p := forecast.CalculateBlockPercentiles(lin.Stats)
	entry := bolt.BlockEntry{Height: ev.Height, Time: ev.Time, Percentiles: p}
	if err := s.blkdb.Put([]bolt.BlockEntry{entry}); err != nil {
		logger.Println("[ERROR] BlockPctDB.Put:", err)
		return
	}
	logger.Printf("Block %d: %d txs from mempool, %s", ev.Height, len(ev.Removed), p)

	if keep := s.cfg.BlockLogBlocks; keep > 0 && ev.Height > keep {
		if err := s.blkdb.Delete(0, ev.Height-keep); err != nil {
			logger.Println("[ERROR] BlockPctDB.Delete:", err)
		}
	}
}

// timedSource wraps the next-block linearization with a metrics timer.
type timedSource struct {
	source forecast.NextBlockSource
	timer  metrics.Timer
}

func (t *timedSource) NextBlockLinearization() ([]mining.FeeStat, []string, error) {
	start := time.Now()
	defer t.timer.UpdateSince(start)
	return t.source.NextBlockLinearization()
}
