//go:build !windows

package cmd

import (
	"os"
	"syscall"
)

var focusSignals = []os.Signal{syscall.SIGUSR1}
