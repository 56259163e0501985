//go:build windows

package cmd

import "os"

var focusSignals []os.Signal
