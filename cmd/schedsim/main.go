package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"

	"github.com/Andrej220/go-utils/procsched"
	"github.com/Andrej220/go-utils/procsched/internal/scenario"
	"github.com/Andrej220/go-utils/procsched/internal/sim"
)

// ExitError carries a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses args, runs the scenario and prints the observed session
// order, one event per line.
func run(ctx context.Context, outW io.Writer, args []string) error {
	flagSet := flag.NewFlagSet("schedsim", flag.ContinueOnError)
	flagSet.SetOutput(outW)
	flagSet.Usage = func() {
		fmt.Fprint(outW, `
schedsim - runs a priority scheduler simulation from an HCL scenario.

Usage:
  schedsim [options] [SCENARIO]

Options:
`)
		flagSet.PrintDefaults()
	}

	scenarioFlag := flagSet.String("scenario", "", "Path to the scenario file.")
	timeoutFlag := flagSet.Duration("timeout", 30*time.Second, "Abort the run after this long.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}

	path := *scenarioFlag
	if path == "" && flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if path == "" {
		flagSet.Usage()
		return &ExitError{Code: 2, Message: "no scenario given"}
	}

	sc, err := scenario.Load(path)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, *timeoutFlag)
	defer cancel()

	logger := lg.FromContext(ctx)
	metrics := &procsched.AtomicMetrics{}
	sched := procsched.New(metrics, procsched.Options{
		Processors: sc.Processors,
		Ctx:        ctx,
	})

	report, runErr := sim.New(sched).Run(ctx, sc.Processes)
	for _, line := range report.Lines() {
		fmt.Fprintln(outW, line)
	}
	logger.Info("scheduler stats",
		lg.String("run", report.RunID),
		lg.Any("granted", metrics.Granted()),
		lg.Any("yielded", metrics.Yielded()),
		lg.Any("wakeups", metrics.Wakeups()),
		lg.Any("canceled", metrics.Canceled()),
		lg.Any("misuse", metrics.Misuse()),
	)
	if runErr != nil {
		return fmt.Errorf("run %s: %w", report.RunID, runErr)
	}

	if len(sc.Expect) == 0 {
		return nil
	}
	if got := report.Lines(); !slices.Equal(got, sc.Expect) {
		return &ExitError{
			Code:    1,
			Message: fmt.Sprintf("unexpected session order:\n  got  %q\n  want %q", got, sc.Expect),
		}
	}
	fmt.Fprintln(outW, "PASSED")
	return nil
}
