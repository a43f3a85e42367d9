package main

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/rpc"
	jsonrpc "github.com/gorilla/rpc/json"
	"github.com/rcrowley/go-metrics"

	"github.com/bitcoinfees/feecast/forecast"
)

type Service struct {
	FeeCast *FeeCast
	DLog    *DebugLog
	Cfg     config

	estimateTimer metrics.Timer
}

// EstimateFeeReply is the answer to one estimatefee query: the winning
// forecaster's verdict plus the error strings of the forecasters that
// could not serve the target.
type EstimateFeeReply struct {
	Forecaster   string   `json:"forecaster"`
	Height       int64    `json:"height"`
	LowPriority  int64    `json:"lowpriority"`  // sat/kvB
	HighPriority int64    `json:"highpriority"` // sat/kvB
	Errors       []string `json:"errors,omitempty"`
}

type BlockPctEntry struct {
	Height int64 `json:"height"`
	Time   int64 `json:"time"`
	P5     int64 `json:"p5"`
	P25    int64 `json:"p25"`
	P50    int64 `json:"p50"`
	P75    int64 `json:"p75"`
}

func (s *Service) ListenAndServe() error {
	s.estimateTimer = metrics.NewRegisteredTimer("estimatefee", metrics.DefaultRegistry)

	srv := rpc.NewServer()
	srv.RegisterCodec(jsonrpc.NewCodec(), "application/json")
	srv.RegisterService(s, "")
	http.Handle("/", srv)
	addr := net.JoinHostPort(s.Cfg.AppRPC.Host, s.Cfg.AppRPC.Port)
	s.DLog.Logger.Println("RPC server listening on", addr)
	return http.ListenAndServe(addr, nil)
}

func (s *Service) Stop(r *http.Request, args *struct{}, reply *struct{}) error {
	go s.FeeCast.Stop()
	return nil
}

func (s *Service) Status(r *http.Request, args *struct{}, reply *map[string]string) error {
	*reply = s.FeeCast.Status()
	return nil
}

func (s *Service) EstimateFee(r *http.Request, args *int, reply *EstimateFeeReply) error {
	start := time.Now()
	defer s.estimateTimer.UpdateSince(start)

	target := *args
	if target <= 0 {
		target = 1
	}

	result, errs := s.FeeCast.EstimateFee(target)
	if result.Empty() {
		return fmt.Errorf("no forecaster could estimate: %s", strings.Join(errs, "; "))
	}
	*reply = EstimateFeeReply{
		Forecaster:   result.Forecaster,
		Height:       result.Height,
		LowPriority:  result.LowPriority.FeePerKvB(),
		HighPriority: result.HighPriority.FeePerKvB(),
		Errors:       errs,
	}
	return nil
}

func (s *Service) Forecasts(r *http.Request, args *int, reply *[]forecast.Result) error {
	target := *args
	if target <= 0 {
		target = 1
	}
	*reply = s.FeeCast.Forecasts(target)
	return nil
}

func (s *Service) MaxTarget(r *http.Request, args *struct{}, reply *int) error {
	*reply = s.FeeCast.MaxTarget()
	return nil
}

func (s *Service) BlockPcts(r *http.Request, args *int, reply *[]BlockPctEntry) error {
	n := int64(*args)
	if n <= 0 {
		n = 6
	}
	entries, err := s.FeeCast.RecentBlocks(n)
	if err != nil {
		return err
	}
	out := make([]BlockPctEntry, len(entries))
	for i, e := range entries {
		out[i] = BlockPctEntry{
			Height: e.Height,
			Time:   e.Time,
			P5:     e.Percentiles.P5.FeePerKvB(),
			P25:    e.Percentiles.P25.FeePerKvB(),
			P50:    e.Percentiles.P50.FeePerKvB(),
			P75:    e.Percentiles.P75.FeePerKvB(),
		}
	}
	*reply = out
	return nil
}

func (s *Service) SetDebug(r *http.Request, args *bool, reply *bool) error {
	s.DLog.SetDebug(*args)
	*reply = *args
	return nil
}

func (s *Service) Config(r *http.Request, args *struct{}, reply *interface{}) error {
	c := s.Cfg
	// Hide the password just in case
	c.BitcoinRPC.Password = "********"
	*reply = c
	return nil
}

func (s *Service) Metrics(r *http.Request, args *struct{}, reply *metrics.Registry) error {
	*reply = metrics.DefaultRegistry
	return nil
}
