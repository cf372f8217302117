package sshexec

import "fmt"

// RemoteConnectFailedError means the ssh client itself could not reach
// or authenticate to the host (client exit code 255), not that the
// remote command ran and failed.
type RemoteConnectFailedError struct {
	Host string
}

func (e *RemoteConnectFailedError) Error() string {
	return fmt.Sprintf("failed to connect to remote host: %s", e.Host)
}

// RemoteCommandFailedError means the ssh session was established but
// the remote command exited nonzero.
type RemoteCommandFailedError struct {
	Host       string
	ReturnCode int
}

func (e *RemoteCommandFailedError) Error() string {
	return fmt.Sprintf("remote command on %s failed with exit code %d", e.Host, e.ReturnCode)
}
