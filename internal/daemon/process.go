// Package daemon tracks a detached "adreview serve" process through a PID
// file and an append-only log next to it.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrNotRunning is returned when no live process is recorded.
var ErrNotRunning = errors.New("server is not running")

// Process locates the PID and log files for one named background process.
type Process struct {
	PIDPath string
	LogPath string
}

// New returns the Process for name inside dir, e.g. dir/name.pid.
func New(dir, name string) *Process {
	return &Process{
		PIDPath: filepath.Join(dir, name+".pid"),
		LogPath: filepath.Join(dir, name+".log"),
	}
}

// WritePID records pid, creating the directory if needed.
func (p *Process) WritePID(pid int) error {
	if err := os.MkdirAll(filepath.Dir(p.PIDPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.PIDPath, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// ReadPID returns the recorded pid.
func (p *Process) ReadPID() (int, error) {
	data, err := os.ReadFile(p.PIDPath)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

// Clear removes the PID file. A missing file is not an error.
func (p *Process) Clear() error {
	if err := os.Remove(p.PIDPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// OpenLog opens the log file for appending.
func (p *Process) OpenLog() (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(p.LogPath), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(p.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// Stop sends term, waits up to grace for the process to exit, then sends
// kill. The PID file is cleared once the process is gone.
func (p *Process) Stop(term, kill syscall.Signal, grace time.Duration) error {
	pid, running := p.Running()
	if !running {
		_ = p.Clear()
		return ErrNotRunning
	}
	if err := p.Signal(term); err != nil {
		return fmt.Errorf("signal %d: %w", pid, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if _, alive := p.Running(); !alive {
			return p.Clear()
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := p.Signal(kill); err != nil {
		return fmt.Errorf("kill %d: %w", pid, err)
	}
	return p.Clear()
}
