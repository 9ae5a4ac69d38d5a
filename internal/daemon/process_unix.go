//go:build !windows

package daemon

import (
	"fmt"
	"syscall"
)

// Running reports the recorded pid and whether that process is alive.
func (p *Process) Running() (int, bool) {
	pid, err := p.ReadPID()
	if err != nil {
		return 0, false
	}
	// Signal 0 probes without delivering anything.
	err = syscall.Kill(pid, 0)
	return pid, err == nil
}

// Signal delivers sig to the recorded process.
func (p *Process) Signal(sig syscall.Signal) error {
	pid, err := p.ReadPID()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	return syscall.Kill(pid, sig)
}
