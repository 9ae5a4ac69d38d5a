//go:build windows

package cmd

import (
	"os"
	"os/exec"
	"syscall"
)

// No session detach on Windows.
func setDaemonAttrs(_ *exec.Cmd) {}

func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// Windows cannot deliver SIGTERM, so stop escalates straight to a kill.
func sigTERM() syscall.Signal { return syscall.SIGKILL }

func sigKILL() syscall.Signal { return syscall.SIGKILL }
