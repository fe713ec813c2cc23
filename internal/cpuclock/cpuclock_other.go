//go:build !linux

package cpuclock

import "time"

// processTime falls back to the wall clock where the process CPU clock is not wired.
func processTime() time.Duration {
	return time.Since(wallStart)
}
