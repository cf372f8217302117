package pool

import (
	"time"

	"go.uber.org/zap"

	"github.com/exehost/executor/pkg/process"
	"github.com/exehost/executor/pkg/sshexec"
)

// Foreach builds one sshexec.RemoteCommand per host sharing concurrency,
// capture, and remote options, runs them all through a CommandPool, and
// returns the completed commands in host order. DelayChecks is always
// on: a single unreachable host should not hide the results from hosts
// that succeeded.
func Foreach(log *zap.Logger, hosts []string, argv []string, remoteTemplate sshexec.RemoteOptions, opts process.Options, concurrency int) ([]*sshexec.RemoteCommand, error) {
	p := New(log, Options{Concurrency: concurrency, DelayChecks: true})

	opts.Async = true
	commands := make([]*sshexec.RemoteCommand, len(hosts))
	for i, host := range hosts {
		remote := remoteTemplate
		remote.Host = host
		cmd := sshexec.New(log, remote, argv, opts)
		commands[i] = cmd
		var hint time.Duration
		if opts.Timeout > 0 {
			hint = opts.Timeout + opts.GracePeriod
		}
		p.AddWithTimeout(cmd, hint, int64(i))
	}

	err := p.Run()
	if poolErr, ok := err.(*PoolFailedError); ok {
		return commands, poolErr
	}
	return commands, err
}
