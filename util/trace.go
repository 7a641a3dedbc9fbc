package util

import (
	"log/slog"
	"time"
)

// Trace logs how long a block took. Use as `defer util.Trace("decode")()`.
func Trace(name string) func() {
	start := time.Now()
	return func() {
		slog.Info("trace", "name", name, "elapsed", time.Since(start))
	}
}
