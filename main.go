package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rcrowley/go-metrics"

	"github.com/bitcoinfees/feecast/api"
	col "github.com/bitcoinfees/feecast/collect"
	"github.com/bitcoinfees/feecast/collect/corerpc"
	"github.com/bitcoinfees/feecast/db/bolt"
)

const usage = `
feecast [-c CONFIGFILE] [-d DATADIR] COMMAND [-h | -help] [args...]

Commands:
	start       (start the fee forecasting daemon)
	stop        (terminate the daemon)
	version     (show app version)
	status      (show daemon status)
	estimatefee (fee rate forecast (sat/kvB) for confirmation within target N)
	forecasts   (every forecaster's verdict for target N)
	maxtarget   (largest confirmation target any forecaster serves)
	blockpcts   (percentile fee rates of recent blocks)
	setdebug    (turn on/off debug-level logging)
	metrics     (show app metrics)
	config      (show app config settings)

`

const version = "0.1.0"

func main() {
	var (
		configFile, dataDir string
	)
	flag.CommandLine.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		flag.CommandLine.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	flag.StringVar(&configFile, "c", "",
		fmt.Sprintf("Path to config file (alternatively, use %s env var).", configFileEnv))
	flag.StringVar(&dataDir, "d", "",
		fmt.Sprintf("Path to data directory (alternatively, use %s env var).", dataDirEnv))
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.CommandLine.Usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(configFile, dataDir)
	if err != nil {
		log.Fatal(err)
	}

	apiclient := api.NewClient(api.Config{
		Host:    cfg.AppRPC.Host,
		Port:    cfg.AppRPC.Port,
		Timeout: 15,
	})

	switch args[0] {
	case "start":
		runFeeCast(args, cfg)
	case "version":
		fmt.Println(version)
	case "stop":
		stop(args, apiclient)
	case "status":
		status(args, apiclient)
	case "estimatefee":
		estimateFee(args, apiclient)
	case "forecasts":
		forecasts(args, apiclient)
	case "maxtarget":
		maxTarget(args, apiclient)
	case "blockpcts":
		blockPcts(args, apiclient)
	case "setdebug":
		setDebug(args, apiclient)
	case "metrics":
		appMetrics(args, apiclient)
	case "config":
		appConfig(args, apiclient)
	default:
		log.Fatalf("Invalid command '%s'", args[0])
	}
}

func runFeeCast(args []string, cfg config) {
	const usage = `
feecast start

Start the daemon. The daemon will begin polling the node's mempool, and
will begin serving fee rate forecasts once there is sufficient data.

Use feecast status to check the data collection status. Use feecast
estimatefee to query the forecasters.
`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	blkdb, err := loadBlockPctDB(cfg)
	if err != nil {
		log.Fatal(fmt.Errorf("loadBlockPctDB: %v", err))
	}

	collectConfig := loadCollectorConfig(cfg)

	// Setup the logger
	var dLog *DebugLog
	logFileMode := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if f, err := os.OpenFile(cfg.LogFile, logFileMode, 0666); err != nil {
		log.Fatal(fmt.Errorf("opening logfile: %v", err))
	} else {
		dLog = NewDebugLog(f, "", log.LstdFlags)
	}

	feecastConfig := cfg.FeeCastConfig
	feecastConfig.Collect = collectConfig
	feecastConfig.logger = dLog.Logger

	feecast, err := NewFeeCast(blkdb, feecastConfig)
	if err != nil {
		log.Fatal(fmt.Errorf("NewFeeCast: %v", err))
	}
	service := &Service{FeeCast: feecast, DLog: dLog, Cfg: cfg}

	os.Stdout.Close()
	os.Stderr.Close()
	os.Stdin.Close()

	errc := make(chan error)
	go func() { errc <- feecast.Run() }()
	go func() { errc <- service.ListenAndServe() }()

	// Signal handling
	sigc := make(chan os.Signal, 3)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		<-sigc
		feecast.Stop()
	}()

	err = <-errc
	// Blocks until it is safely shutdown. It is idempotent, so no harm if
	// feecast is already stopped.
	feecast.Stop()
	if err != nil {
		dLog.Logger.Fatal(err)
	}
}

func loadBlockPctDB(cfg config) (BlockPctDB, error) {
	const dbFileName = "blockpct.db"
	dbfile := filepath.Join(cfg.DataDir, dbFileName)
	return bolt.LoadBlockPctDB(dbfile)
}

func loadCollectorConfig(cfg config) col.Config {
	timeNow := func() int64 {
		return time.Now().Unix()
	}
	getState, getBlock := corerpc.Getters(timeNow, cfg.BitcoinRPC)

	// Wrap getState with a timer
	reservoirSize := 60 / cfg.Collect.PollPeriod * 60 * 24 // About one day's worth
	getStateTimer := metrics.NewCustomTimer(metrics.NewHistogram(
		metrics.NewExpDecaySample(reservoirSize, 0.015)), metrics.NewMeter())
	timedGetState := func() (*col.MempoolState, error) {
		start := time.Now()
		defer getStateTimer.UpdateSince(start)
		return getState()
	}
	name := "getstate" + strconv.Itoa(reservoirSize)
	metrics.Register(name, getStateTimer)

	return col.Config{
		GetState:   timedGetState,
		GetBlock:   getBlock,
		PollPeriod: cfg.Collect.PollPeriod,
	}
}
