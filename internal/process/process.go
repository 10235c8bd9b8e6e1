// Package process manages child process trees: the LaTeX compiler, which
// may spawn helpers such as bibtex or makeindex, and the export browser.
package process

import (
	"errors"
	"os/exec"
	"time"
)

// ErrInvalidPID is returned for PIDs that would target the caller's own group.
var ErrInvalidPID = errors.New("invalid process id")

// waitDelay bounds how long Wait blocks on I/O after the group is killed.
const waitDelay = 2 * time.Second

// Isolate makes a command built with exec.CommandContext kill its whole
// process tree when the context is done, instead of only the direct child.
// Must be called before Start.
func Isolate(cmd *exec.Cmd) {
	setGroup(cmd)
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := KillProcessGroup(cmd.Process.Pid); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = waitDelay
}
