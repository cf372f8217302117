package process

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestCommand(argv []string, opts Options) *Command {
	return New(zap.NewNop(), argv, opts)
}

func TestRunStatusCodeSuccess(t *testing.T) {
	cmd := newTestCommand([]string{"true"}, DefaultOptions())
	if err := cmd.Run(); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if cmd.ReturnCode() != 0 {
		t.Fatalf("expected returncode 0, got %d", cmd.ReturnCode())
	}
	if !cmd.IsFinished() || cmd.IsRunning() {
		t.Fatalf("expected finished, not running")
	}
}

func TestRunStatusCodeFailureChecked(t *testing.T) {
	cmd := newTestCommand([]string{"false"}, DefaultOptions())
	err := cmd.Run()
	if err == nil {
		t.Fatalf("expected CommandFailedError, got nil")
	}
	if _, ok := err.(*CommandFailedError); !ok {
		t.Fatalf("expected *CommandFailedError, got %T: %v", err, err)
	}
	if !cmd.Failed() {
		t.Fatalf("expected Failed() true")
	}
}

func TestRunStatusCodeFailureUnchecked(t *testing.T) {
	opts := DefaultOptions()
	opts.Check = false
	cmd := newTestCommand([]string{"false"}, opts)
	if err := cmd.Run(); err != nil {
		t.Fatalf("expected no error with Check=false, got %v", err)
	}
	if cmd.ReturnCode() == 0 {
		t.Fatalf("expected nonzero returncode")
	}
}

func TestShellSyntaxSingleArgVerbatim(t *testing.T) {
	cmd := newTestCommand([]string{"exit 42"}, DefaultOptions())
	err := cmd.Run()
	if err == nil {
		t.Fatalf("expected failure")
	}
	if cmd.ReturnCode() != 42 {
		t.Fatalf("expected returncode 42, got %d", cmd.ReturnCode())
	}
	line := cmd.CommandLine()
	if len(line) != 3 || line[1] != "-c" || line[2] != "exit 42" {
		t.Fatalf("unexpected command line: %v", line)
	}
}

func TestCaptureStdout(t *testing.T) {
	opts := DefaultOptions()
	opts.Capture = true
	cmd := newTestCommand([]string{"echo", "this is a test"}, opts)
	if err := cmd.Run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	got := strings.TrimRight(cmd.Output(), "\n")
	if got != "this is a test" {
		t.Fatalf("expected %q, got %q", "this is a test", got)
	}
}

func TestCaptureStderrSeparately(t *testing.T) {
	opts := DefaultOptions()
	opts.CaptureStderr = true
	cmd := newTestCommand([]string{"sh", "-c", "echo err >&2"}, opts)
	if err := cmd.Run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	got := strings.TrimRight(cmd.StderrOutput(), "\n")
	if got != "err" {
		t.Fatalf("expected %q, got %q", "err", got)
	}
}

func TestMergeStreams(t *testing.T) {
	opts := DefaultOptions()
	opts.Capture = true
	opts.MergeStreams = true
	cmd := newTestCommand([]string{"sh", "-c", "echo out; echo err >&2"}, opts)
	if err := cmd.Run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	got := cmd.Output()
	if !strings.Contains(got, "out") || !strings.Contains(got, "err") {
		t.Fatalf("expected merged output to contain both streams, got %q", got)
	}
}

func TestStdinInput(t *testing.T) {
	opts := DefaultOptions()
	opts.Capture = true
	opts.Input = []byte("hello\n")
	cmd := newTestCommand([]string{"cat"}, opts)
	if err := cmd.Run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if strings.TrimRight(cmd.Output(), "\n") != "hello" {
		t.Fatalf("expected stdin echoed back, got %q", cmd.Output())
	}
}

func TestWorkingDirectory(t *testing.T) {
	opts := DefaultOptions()
	opts.Capture = true
	opts.Directory = "/tmp"
	cmd := newTestCommand([]string{"pwd"}, opts)
	if err := cmd.Run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	got := strings.TrimRight(cmd.Output(), "\n")
	if got != "/tmp" {
		t.Fatalf("expected /tmp, got %q", got)
	}
}

func TestEnvironmentVariables(t *testing.T) {
	opts := DefaultOptions()
	opts.Capture = true
	opts.Environment = map[string]string{"EXECUTOR_TEST_VAR": "xyz"}
	cmd := newTestCommand([]string{"sh", "-c", "echo $EXECUTOR_TEST_VAR"}, opts)
	if err := cmd.Run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if strings.TrimRight(cmd.Output(), "\n") != "xyz" {
		t.Fatalf("expected xyz, got %q", cmd.Output())
	}
}

func TestCommandNotFound(t *testing.T) {
	cmd := newTestCommand([]string{"this-program-does-not-exist-anywhere"}, DefaultOptions())
	err := cmd.Run()
	if err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := err.(*CommandNotFoundError); !ok {
		t.Fatalf("expected *CommandNotFoundError, got %T: %v", err, err)
	}
}

func TestAsyncLifecycle(t *testing.T) {
	opts := DefaultOptions()
	opts.Async = true
	cmd := newTestCommand([]string{"sleep", "0.2"}, opts)
	if err := cmd.Run(); err != nil {
		t.Fatalf("async start failed: %v", err)
	}
	if !cmd.IsRunning() {
		t.Fatalf("expected running immediately after async start")
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if cmd.IsRunning() {
		t.Fatalf("expected not running after wait")
	}
}

func TestTerminateAndKill(t *testing.T) {
	opts := DefaultOptions()
	opts.Async = true
	opts.Check = false
	cmd := newTestCommand([]string{"sleep", "30"}, opts)
	if err := cmd.Run(); err != nil {
		t.Fatalf("async start failed: %v", err)
	}
	ok, err := cmd.Terminate(true, 2*time.Second)
	if err != nil {
		t.Fatalf("terminate failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected process to stop after terminate")
	}
	_ = cmd.Wait()
	if cmd.IsRunning() {
		t.Fatalf("expected not running after terminate")
	}
}

func TestRecentOutputAvailableWithoutCapture(t *testing.T) {
	opts := DefaultOptions()
	opts.Silent = false
	cmd := newTestCommand([]string{"sh", "-c", "echo one; echo two; echo three"}, opts)
	if err := cmd.Run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	recent := cmd.RecentOutput(2)
	if len(recent) != 2 || recent[0] != "three" || recent[1] != "two" {
		t.Fatalf("unexpected recent output: %v", recent)
	}
}

func TestTimeout(t *testing.T) {
	opts := DefaultOptions()
	opts.Check = false
	opts.Timeout = 100 * time.Millisecond
	opts.GracePeriod = 200 * time.Millisecond
	cmd := newTestCommand([]string{"sleep", "10"}, opts)
	err := cmd.Run()
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if _, ok := err.(*CommandTimedOutError); !ok {
		t.Fatalf("expected *CommandTimedOutError, got %T: %v", err, err)
	}
	if !cmd.TimedOut() {
		t.Fatalf("expected TimedOut() true")
	}
}

func TestGoStringIncludesKeyFields(t *testing.T) {
	cmd := newTestCommand([]string{"true"}, DefaultOptions())
	_ = cmd.Run()
	repr := cmd.GoString()
	for _, want := range []string{"was_started=true", "is_finished=true", "returncode=0"} {
		if !strings.Contains(repr, want) {
			t.Fatalf("expected repr to contain %q, got %q", want, repr)
		}
	}
}
