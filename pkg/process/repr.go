package process

import (
	"fmt"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// GoString renders a Command the way the Python library's repr(cmd)
// does: enough fields to diagnose a run from a log line, in a stable
// order, without dumping the full captured output.
func (c *Command) GoString() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	b.WriteString("Command(")
	fmt.Fprintf(&b, "argv=%#v, ", c.argv)

	if len(c.opts.Environment) > 0 {
		keys := make([]string, 0, len(c.opts.Environment))
		for k := range c.opts.Environment {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&b, "environment=%v, ", keys)
	}
	if c.opts.Directory != "" {
		fmt.Fprintf(&b, "directory=%q, ", c.opts.Directory)
	}
	fmt.Fprintf(&b, "async=%t, ", c.opts.Async)
	fmt.Fprintf(&b, "was_started=%t, ", c.started)
	fmt.Fprintf(&b, "is_running=%t, ", c.st == stateRunning || c.st == stateSuspended)
	fmt.Fprintf(&b, "is_finished=%t", c.finished)
	if c.finished {
		fmt.Fprintf(&b, ", returncode=%d", c.exitCode)
	}
	b.WriteString(")")
	return b.String()
}

// spewConfig matches the verbose debug-dump style used for error
// chains: no pointer addresses (noisy and nondeterministic across
// runs), methods excluded.
var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableMethods:          true,
	SortKeys:                true,
}

// DumpDebug spews the full internal state of a Command, used by the
// CLI's --verbose mode when a run fails unexpectedly.
func (c *Command) DumpDebug() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return spewConfig.Sdump(struct {
		Argv          []string
		EffectiveArgv []string
		Options       Options
		State         state
		ExitCode      int
		TimedOut      bool
	}{c.argv, c.effectiveArgv, c.opts, c.st, c.exitCode, c.timedOut})
}

// PrintErrChain walks an error chain and prints each layer's type and
// message, adapted from the teacher's fmtt.PrintErrChain for CLI
// --verbose diagnostics.
func PrintErrChain(err error) string {
	if err == nil {
		return "<nil>"
	}
	var b strings.Builder
	for i, e := 0, err; e != nil; i, e = i+1, unwrap(e) {
		fmt.Fprintf(&b, "[%d] %T: %v\n", i, e, e)
	}
	return b.String()
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}
