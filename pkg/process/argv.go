package process

import (
	"os"
	"path/filepath"

	"github.com/exehost/executor/internal/shellquote"
)

// buildEffectiveArgv applies the wrapper pipeline from spec.md §4.3 in
// order: shell synthesis, virtual-environment activation, then
// fakeroot/sudo — each wrapper prepends to whatever the previous stage
// produced.
func buildEffectiveArgv(argv []string, opts Options) []string {
	base := synthesizeShell(argv, opts)

	if opts.VirtualEnv != "" {
		base = applyVirtualEnv(base, opts.Shell, opts.VirtualEnv)
	}

	var prefix []string
	useSudo := opts.Sudo && os.Geteuid() != 0
	if useSudo {
		prefix = append(prefix, "sudo", "-n")
	}
	if opts.Fakeroot {
		prefix = append(prefix, "fakeroot")
	}
	if len(prefix) > 0 {
		base = append(append([]string{}, prefix...), base...)
	}
	return base
}

// synthesizeShell decides whether argv needs shell interpretation and,
// if so, produces {shell, "-c", script}.
//
// A single-element argv is assumed to already be shell syntax typed by
// the caller (e.g. "exit 42", or "echo a; echo b >&2") and is passed to
// -c verbatim, preserving redirections and statement separators. A
// multi-element argv is assumed to be argv-style data, so each element
// is individually quoted and joined — round-tripping through the shell
// reconstructs the exact original argument boundaries.
func synthesizeShell(argv []string, opts Options) []string {
	needsShell := false
	switch {
	case opts.UseShell != nil:
		needsShell = *opts.UseShell
	default:
		needsShell = shellquote.NeedsShell(argv)
	}

	if !needsShell {
		return append([]string{}, argv...)
	}

	shell := opts.Shell
	if shell == "" {
		shell = "bash"
	}

	var script string
	if len(argv) == 1 {
		script = argv[0]
	} else {
		script = shellquote.QuoteAll(argv)
	}
	return []string{shell, "-c", script}
}

// applyVirtualEnv prepends a `source <venv>/bin/activate &&` shell
// prefix, reusing the existing shell -c script when base is already
// shell-wrapped instead of nesting a second shell invocation.
func applyVirtualEnv(base []string, shell, venv string) []string {
	var script string
	if len(base) == 3 && base[0] == shell && base[1] == "-c" {
		script = base[2]
	} else {
		script = shellquote.QuoteAll(base)
	}
	activate := "source " + shellquote.Quote(filepath.Join(venv, "bin", "activate")) + " && " + script
	return []string{shell, "-c", activate}
}
