package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/bitcoinfees/feecast/api"
)

func stop(args []string, c *api.Client) {
	const usage = `
feecast stop

Stop the daemon.
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
	if err := c.Stop(); err != nil {
		log.Fatal(err)
	}
}

func status(args []string, c *api.Client) {
	const usage = `
feecast status

Show daemon status:

	mempool: Whether or not mempool data is available.
	sync   : Whether or not the mempool is roughly in sync with the
	         contents of recent blocks.
	result : Whether or not a next-block fee estimate is available.

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

	result, err := c.Status()
	if err != nil {
		log.Fatal(err)
	}

	for _, k := range []string{"mempool", "sync", "result"} {
		fmt.Printf("%-8s: %s\n", k, result[k])
	}
}

func estimateFee(args []string, c *api.Client) {
	const usage = `
feecast estimatefee [N]

Returns the forecast fee rates (sat/kvB) for confirmation within target N,
along with the forecaster that produced them. N defaults to 1.

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

	n := parseTarget(f.Arg(0))
	result, err := c.EstimateFee(n)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("forecaster  : %s\n", result.Forecaster)
	fmt.Printf("height      : %d\n", result.Height)
	fmt.Printf("lowpriority : %d sat/kvB\n", result.LowPriority)
	fmt.Printf("highpriority: %d sat/kvB\n", result.HighPriority)
	for _, e := range result.Errors {
		fmt.Printf("note        : %s\n", e)
	}
}

func forecasts(args []string, c *api.Client) {
	const usage = `
feecast forecasts [N]

Show every registered forecaster's verdict for confirmation target N.
N defaults to 1.

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

	n := parseTarget(f.Arg(0))
	results, err := c.Forecasts(n)
	if err != nil {
		log.Fatal(err)
	}

	for _, r := range results {
		if r.Err != "" {
			fmt.Printf("%-20s: %s\n", r.Forecaster, r.Err)
		} else {
			fmt.Printf("%-20s: low %d, high %d sat/kvB (height %d)\n",
				r.Forecaster, r.LowPriority, r.HighPriority, r.Height)
		}
	}
}

func maxTarget(args []string, c *api.Client) {
	const usage = `
feecast maxtarget

Show the largest confirmation target any registered forecaster serves.
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

	result, err := c.MaxTarget()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result)
}

func blockPcts(args []string, c *api.Client) {
	const usage = `
feecast blockpcts [N]

Show the percentile fee rates (sat/kvB) of the last N blocks' mempool
linearizations. N defaults to 6.

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

	n := parseTarget(f.Arg(0))
	entries, err := c.BlockPcts(n)
	if err != nil {
		log.Fatal(err)
	}

	for _, e := range entries {
		fmt.Printf("%d (%s): p5 %d, p25 %d, p50 %d, p75 %d\n",
			e.Height, time.Unix(e.Time, 0).Format(time.RFC3339),
			e.P5, e.P25, e.P50, e.P75)
	}
}

func setDebug(args []string, c *api.Client) {
	const usage = `
feecast setdebug <true|false>

Turn on/off debug-level logging.
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

	d, err := strconv.ParseBool(f.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	result, err := c.SetDebug(d)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("debug:", result)
}

func appMetrics(args []string, c *api.Client) {
	const usage = `
feecast metrics

Show app metrics.
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

	result, err := c.Metrics()
	if err != nil {
		log.Fatal(err)
	}
	printJSON(result)
}

func appConfig(args []string, c *api.Client) {
	const usage = `
feecast config

Show app config settings.
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

	result, err := c.Config()
	if err != nil {
		log.Fatal(err)
	}
	printJSON(result)
}

func parseTarget(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatal(err)
	}
	return n
}

func printJSON(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(b))
}
