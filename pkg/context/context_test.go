package context

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/exehost/executor/pkg/process"
)

func TestLocalContextExecuteAndCapture(t *testing.T) {
	ctx := NewLocalContext(zap.NewNop())

	out, err := ctx.Capture([]string{"echo", "hello"}, process.DefaultOptions())
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if strings.TrimRight(out, "\n") != "hello" {
		t.Fatalf("expected hello, got %q", out)
	}

	if err := ctx.Execute([]string{"true"}, process.DefaultOptions()); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
}

func TestLocalContextCleanupRunsInReverseOrder(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "order.txt")

	ctx := NewLocalContext(zap.NewNop())
	ctx.Cleanup([]string{"sh", "-c", "echo first >> " + marker}, process.DefaultOptions())
	ctx.Cleanup([]string{"sh", "-c", "echo second >> " + marker}, process.DefaultOptions())

	if err := ctx.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("reading marker: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || lines[0] != "second" || lines[1] != "first" {
		t.Fatalf("expected reverse-order cleanup, got %v", lines)
	}
}
