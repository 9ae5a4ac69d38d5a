//go:build windows

package daemon

import (
	"fmt"
	"os"
	"syscall"
)

// Running reports the recorded pid and whether that process is alive.
func (p *Process) Running() (int, bool) {
	pid, err := p.ReadPID()
	if err != nil {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, false
	}
	err = proc.Signal(syscall.Signal(0))
	return pid, err == nil
}

// Signal delivers sig to the recorded process. Only a kill is reliable on
// Windows.
func (p *Process) Signal(sig syscall.Signal) error {
	pid, err := p.ReadPID()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	return proc.Signal(sig)
}
