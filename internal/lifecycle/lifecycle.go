package lifecycle

import (
	"sync/atomic"
	"time"
)

// shutdownStart holds the unix nano timestamp of the moment the process began
// draining, zero while serving normally.
var shutdownStart atomic.Int64

// SetShuttingDown flips the drain flag. Call with true when SIGTERM/SIGINT is
// received; the health handler answers 503 shutting-down while set.
func SetShuttingDown(v bool) {
	if !v {
		shutdownStart.Store(0)
		return
	}
	shutdownStart.Store(time.Now().UnixNano())
}

// IsShuttingDown reports whether the process is draining and should not
// receive new traffic.
func IsShuttingDown() bool {
	return shutdownStart.Load() != 0
}

// ShutdownStartedAt returns when draining began, or the zero time when the
// process is serving normally.
func ShutdownStartedAt() time.Time {
	n := shutdownStart.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
