// Package context provides LocalContext and RemoteContext, a uniform
// façade over running commands on a local or remote machine, grounded
// on the teacher's services.SystemdService withCritical pattern: a
// single mutex serializes access to the instance's public API so
// concurrent callers' cleanup registrations never race each other.
package context

import (
	"sync"

	"go.uber.org/zap"

	"github.com/exehost/executor/pkg/process"
	"github.com/exehost/executor/pkg/sshexec"
)

type cleanupEntry struct {
	argv []string
	opts process.Options
}

// base holds the part of the façade that doesn't depend on
// local-vs-remote: the withCritical mutex and the reverse-order
// cleanup queue.
type base struct {
	mu       sync.Mutex
	cleanups []cleanupEntry
}

// LocalContext runs commands on the local machine.
type LocalContext struct {
	base
	log *zap.Logger
}

// NewLocalContext returns a context whose execute/capture run
// process.Command directly.
func NewLocalContext(log *zap.Logger) *LocalContext {
	return &LocalContext{log: log}
}

func (c *LocalContext) withCritical(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn()
}

// Execute runs argv to completion with ctxOpts as its process options.
func (c *LocalContext) Execute(argv []string, ctxOpts process.Options) error {
	return c.withCritical(func() error {
		return c.execute(argv, ctxOpts)
	})
}

func (c *LocalContext) execute(argv []string, opts process.Options) error {
	cmd := process.New(c.log, argv, opts)
	return cmd.Run()
}

// Capture runs argv to completion with stdout captured and returns the
// decoded output.
func (c *LocalContext) Capture(argv []string, ctxOpts process.Options) (string, error) {
	var out string
	err := c.withCritical(func() error {
		o, err := c.capture(argv, ctxOpts)
		out = o
		return err
	})
	return out, err
}

func (c *LocalContext) capture(argv []string, opts process.Options) (string, error) {
	opts.Capture = true
	cmd := process.New(c.log, argv, opts)
	err := cmd.Run()
	return cmd.Output(), err
}

// Cleanup enqueues argv to be executed, in reverse insertion order,
// when Close is called.
func (c *LocalContext) Cleanup(argv []string, ctxOpts process.Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanups = append(c.cleanups, cleanupEntry{argv: argv, opts: ctxOpts})
}

// Close runs every registered cleanup command in reverse order,
// collecting (not stopping on) individual failures. Safe to call via
// defer to guarantee scope-exit cleanup on every return path.
func (c *LocalContext) Close() error {
	c.mu.Lock()
	entries := append([]cleanupEntry{}, c.cleanups...)
	c.cleanups = nil
	c.mu.Unlock()

	var first error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if err := c.execute(e.argv, e.opts); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RemoteContext runs commands on a bound remote host over ssh.
type RemoteContext struct {
	base
	log    *zap.Logger
	remote sshexec.RemoteOptions
}

// NewRemoteContext returns a context whose execute/capture run
// sshexec.RemoteCommand against remote.Host.
func NewRemoteContext(log *zap.Logger, remote sshexec.RemoteOptions) *RemoteContext {
	return &RemoteContext{log: log, remote: remote}
}

func (c *RemoteContext) withCritical(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn()
}

func (c *RemoteContext) Execute(argv []string, ctxOpts process.Options) error {
	return c.withCritical(func() error {
		return c.execute(argv, ctxOpts)
	})
}

func (c *RemoteContext) execute(argv []string, opts process.Options) error {
	cmd := sshexec.New(c.log, c.remote, argv, opts)
	return cmd.Run(false)
}

func (c *RemoteContext) Capture(argv []string, ctxOpts process.Options) (string, error) {
	var out string
	err := c.withCritical(func() error {
		opts := ctxOpts
		opts.Capture = true
		cmd := sshexec.New(c.log, c.remote, argv, opts)
		err := cmd.Run(false)
		out = cmd.Output()
		return err
	})
	return out, err
}

func (c *RemoteContext) Cleanup(argv []string, ctxOpts process.Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanups = append(c.cleanups, cleanupEntry{argv: argv, opts: ctxOpts})
}

func (c *RemoteContext) Close() error {
	c.mu.Lock()
	entries := append([]cleanupEntry{}, c.cleanups...)
	c.cleanups = nil
	c.mu.Unlock()

	var first error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if err := c.execute(e.argv, e.opts); err != nil && first == nil {
			first = err
		}
	}
	return first
}
