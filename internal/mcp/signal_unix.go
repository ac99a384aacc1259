//go:build !windows

package mcp

import (
	"os"
	"syscall"
)

// shutdownSignals stop a running command.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
