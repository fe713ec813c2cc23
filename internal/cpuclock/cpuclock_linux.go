//go:build linux

package cpuclock

import (
	"time"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
)

func processTime() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_PROCESS_CPUTIME_ID, &ts); err != nil {
		klog.Errorf("cpuclock: failed to read process CPU time, falling back to wall clock: %v", err)
		return Wall.Now()
	}
	return time.Duration(ts.Nano())
}
