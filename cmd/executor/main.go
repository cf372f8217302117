package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/exehost/executor/internal/execlog"
	"github.com/exehost/executor/internal/shellquote"
	"github.com/exehost/executor/pkg/lockfile"
	"github.com/exehost/executor/pkg/process"
)

const usage = `Usage: executor [OPTIONS] COMMAND [ARG...]

Run COMMAND (with ARG...) as a child process, applying the requested
timeout, exclusive locking, and fudge-factor delay before it starts.
The child's exit code is propagated verbatim.

Options:
  -t, --timeout=SECS        kill command after SECS seconds
  -f, --fudge-factor=SECS   sleep a random [0, SECS] duration before starting
  -e, --exclusive           acquire a file lock keyed on the command line
  -l, --lock-timeout=SECS   maximum wait for the exclusive lock
  -v, --verbose             debug-level logging
  -q, --quiet               warning-level logging and above only
  -h, --help                show this message and exit
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("executor", pflag.ContinueOnError)
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	timeoutSecs := flags.Float64P("timeout", "t", 0, "kill command after SECS seconds")
	fudgeSecs := flags.Float64P("fudge-factor", "f", 0, "sleep a random [0, SECS] duration before starting")
	exclusive := flags.BoolP("exclusive", "e", false, "acquire a file lock keyed on the command line")
	lockTimeoutSecs := flags.Float64P("lock-timeout", "l", 30, "maximum wait for the exclusive lock")
	verbose := flags.BoolP("verbose", "v", false, "debug-level logging")
	quiet := flags.BoolP("quiet", "q", false, "warning-level logging and above only")
	help := flags.BoolP("help", "h", false, "show this message and exit")

	if err := flags.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	if *help {
		fmt.Print(usage)
		return 0
	}

	argv := flags.Args()
	if len(argv) == 0 {
		fmt.Print(usage)
		return 0
	}

	var log *zap.Logger
	switch {
	case *verbose:
		log = execlog.New(true)
	case *quiet:
		log = execlog.Quiet()
	default:
		log = execlog.New(false)
	}
	defer log.Sync()

	if *fudgeSecs > 0 {
		delay := time.Duration(rand.Float64() * *fudgeSecs * float64(time.Second))
		log.Debug("fudge-factor delay", zap.Duration("delay", delay))
		time.Sleep(delay)
	}

	var unlock func()
	if *exclusive {
		key := shellquote.QuoteAll(argv)
		path := lockfile.PathFor(key)
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*lockTimeoutSecs*float64(time.Second)))
		defer cancel()

		lock, err := lockfile.Acquire(ctx, path)
		if err != nil {
			log.Error("could not acquire exclusive lock", zap.String("path", path), zap.Error(err))
			return 1
		}
		unlock = func() { _ = lock.Unlock() }
		defer unlock()
	}

	opts := process.DefaultOptions()
	if *timeoutSecs > 0 {
		opts.Timeout = time.Duration(*timeoutSecs * float64(time.Second))
	}

	cmd := process.New(log, argv, opts)
	err := cmd.Run()

	switch e := err.(type) {
	case nil:
		return 0
	case *process.CommandNotFoundError:
		fmt.Fprintln(os.Stderr, e.Error())
		return 127
	case *process.CommandTimedOutError:
		fmt.Fprintln(os.Stderr, e.Error())
		return 124
	case *process.CommandFailedError:
		return e.ReturnCode
	default:
		fmt.Fprintln(os.Stderr, err.Error())
		if *verbose {
			fmt.Fprintln(os.Stderr, process.PrintErrChain(err))
			fmt.Fprint(os.Stderr, cmd.DumpDebug())
		}
		return 1
	}
}
