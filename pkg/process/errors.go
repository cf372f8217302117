package process

import (
	"fmt"
	"time"
)

// CommandNotFoundError means the program name could not be resolved via
// $PATH; no child was ever spawned. Fatal for that command.
type CommandNotFoundError struct {
	Program string
}

func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("command not found: %s", e.Program)
}

// CommandFailedError means the child exited nonzero while Check was set.
// It carries the command and its returncode.
type CommandFailedError struct {
	Command    *Command
	ReturnCode int
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("external command failed with exit code %d: %s",
		e.ReturnCode, quoteArgvForDisplay(e.Command.CommandLine()))
}

// CommandTimedOutError means the deadline elapsed and the engine
// terminated the command.
type CommandTimedOutError struct {
	Command *Command
	Timeout time.Duration
}

func (e *CommandTimedOutError) Error() string {
	return fmt.Sprintf("external command timed out after %s: %s",
		e.Timeout, quoteArgvForDisplay(e.Command.CommandLine()))
}

func quoteArgvForDisplay(argv []string) string {
	if len(argv) == 0 {
		return "<empty>"
	}
	s := argv[0]
	for _, a := range argv[1:] {
		s += " " + a
	}
	return s
}
