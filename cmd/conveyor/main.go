package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/lmittmann/tint"
	"github.com/nicois/conveyor"
	"golang.org/x/time/rate"
)

type Opts struct {
	Debug               bool           `long:"debug" description:"show more detailed log messages"`
	NoInput             bool           `long:"no-input" description:"do not read commands from STDIN"`
	JobScript           *string        `long:"job-script" description:"path to a JSON-line aperiodic job script"`
	RateLimit           *time.Duration `long:"rate-limit" description:"prevent scripted jobs being submitted more than this often"`
	RateLimitBucketSize int            `long:"rate-limit-bucket-size" description:"allow a burst of up to this many scripted jobs before enforcing the rate limit"`

	Args struct {
		TsMs      float64 `positional-arg-name:"Ts_ms" description:"aperiodic server period in milliseconds (default 10)"`
		CsMs      float64 `positional-arg-name:"Cs_ms" description:"aperiodic server budget in milliseconds (default Ts/2)"`
		Priority  int     `positional-arg-name:"priority" description:"aperiodic server SCHED_FIFO priority"`
		DurationS float64 `positional-arg-name:"duration_s" description:"stop after this many seconds (default: run until 'q' or a signal)"`
	} `positional-args:"yes"`
}

var logger *slog.Logger

func main() {
	// collect command-line options
	var opts Opts
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	// set up the logger
	handlerOptions := tint.Options{}
	if opts.Debug {
		handlerOptions.Level = slog.LevelDebug
		handlerOptions.AddSource = true
	} else {
		handlerOptions.Level = slog.LevelInfo
	}
	logger = slog.New(tint.NewHandler(os.Stdout, &handlerOptions))
	conveyor.SetLogger(logger)

	cfg, err := conveyor.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// server parameters: Ts and Cs in milliseconds, Cs ≤ Ts
	if opts.Args.TsMs < 0 || opts.Args.CsMs < 0 {
		fmt.Fprintln(os.Stderr, "server period and budget must be non-negative")
		os.Exit(1)
	}
	period := 10 * time.Millisecond
	if opts.Args.TsMs > 0 {
		period = time.Duration(opts.Args.TsMs * float64(time.Millisecond))
	}
	budget := period / 2
	if opts.Args.CsMs > 0 {
		budget = time.Duration(opts.Args.CsMs * float64(time.Millisecond))
	}
	if budget > period {
		fmt.Fprintf(os.Stderr, "server budget Cs=%v must not exceed period Ts=%v\n", budget, period)
		os.Exit(1)
	}

	var limiter *rate.Limiter
	if opts.RateLimit != nil {
		if opts.RateLimitBucketSize < 1 {
			opts.RateLimitBucketSize = 1
		}
		limiter = rate.NewLimiter(rate.Every(*opts.RateLimit), opts.RateLimitBucketSize)
	}

	runOpts := conveyor.Options{
		ServerPeriod:   period,
		ServerBudget:   budget,
		ServerPriority: opts.Args.Priority,
		Limiter:        limiter,
	}
	if opts.Args.DurationS > 0 {
		runOpts.RunFor = time.Duration(opts.Args.DurationS * float64(time.Second))
	}
	if !opts.NoInput {
		runOpts.Input = os.Stdin
	}
	if opts.JobScript != nil {
		f, err := os.Open(*opts.JobScript)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open job script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		runOpts.JobScript = f
	}

	h, err := conveyor.NewHarness(cfg, runOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid server parameters: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := h.Run(ctx); err != nil {
		logger.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}
