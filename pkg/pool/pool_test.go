package pool

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/exehost/executor/pkg/process"
)

func asyncCmd(argv []string, check bool) *process.Command {
	opts := process.DefaultOptions()
	opts.Async = true
	opts.Check = check
	return process.New(zap.NewNop(), argv, opts)
}

func TestPoolRunAllSucceed(t *testing.T) {
	p := New(zap.NewNop(), Options{Concurrency: 2})
	for i := 0; i < 4; i++ {
		p.Add(asyncCmd([]string{"true"}, true))
	}
	if err := p.Run(); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !p.IsFinished() {
		t.Fatalf("expected pool finished")
	}
}

func TestPoolRunDefaultModeRaisesFirstFailure(t *testing.T) {
	p := New(zap.NewNop(), Options{Concurrency: 2})
	p.Add(asyncCmd([]string{"true"}, true))
	p.Add(asyncCmd([]string{"false"}, true))
	p.Add(asyncCmd([]string{"sleep", "5"}, false))

	err := p.Run()
	if err == nil {
		t.Fatalf("expected a failure to propagate")
	}
	if _, ok := err.(*process.CommandFailedError); !ok {
		t.Fatalf("expected *process.CommandFailedError, got %T: %v", err, err)
	}
}

func TestPoolRunDelayChecksAggregates(t *testing.T) {
	p := New(zap.NewNop(), Options{Concurrency: 3, DelayChecks: true})
	p.Add(asyncCmd([]string{"true"}, true))
	p.Add(asyncCmd([]string{"false"}, true))
	p.Add(asyncCmd([]string{"false"}, true))

	err := p.Run()
	if err == nil {
		t.Fatalf("expected an aggregate failure")
	}
	poolErr, ok := err.(*PoolFailedError)
	if !ok {
		t.Fatalf("expected *PoolFailedError, got %T: %v", err, err)
	}
	if len(poolErr.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(poolErr.Failures))
	}
}

func TestPoolConcurrencyBound(t *testing.T) {
	p := New(zap.NewNop(), Options{Concurrency: 1})
	for i := 0; i < 3; i++ {
		p.Add(asyncCmd([]string{"sleep", "0.05"}, true))
	}

	start := time.Now()
	if err := p.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 150*time.Millisecond {
		t.Fatalf("expected serialized execution under concurrency=1 to take >= 150ms")
	}
}

func TestPoolUnchekedFailureDoesNotRaise(t *testing.T) {
	p := New(zap.NewNop(), Options{Concurrency: 1})
	p.Add(asyncCmd([]string{"false"}, false))
	if err := p.Run(); err != nil {
		t.Fatalf("expected no error for an unchecked failure, got %v", err)
	}
}

// TestPoolLogsDirectoryWritesPerIdentifierLogFiles covers spec.md
// §4.5/§8's logs_directory property: with identifiers {1..5} each
// running `echo <i>`, D/<i>.log must contain that command's output.
func TestPoolLogsDirectoryWritesPerIdentifierLogFiles(t *testing.T) {
	dir := t.TempDir()
	p := New(zap.NewNop(), Options{Concurrency: 3, LogsDirectory: dir})
	for i := int64(1); i <= 5; i++ {
		p.Add(asyncCmd([]string{"echo", fmt.Sprint(i)}, true), i)
	}
	if err := p.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := int64(1); i <= 5; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%d.log", i))
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("expected log file %s: %v", path, err)
		}
		want := fmt.Sprintf("%d\n", i)
		if string(data) != want {
			t.Fatalf("expected %q in %s, got %q", want, path, data)
		}
	}
}
