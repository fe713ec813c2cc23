// Package spinning provides a spinning symbol, followed by a status line, to display while matches are
// being played, and the handling of interruptions (Ctrl+C).
package spinning

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"k8s.io/klog/v2"
)

var (
	ThemeASCII = []rune("|/-\\")
	ThemeMoon  = []rune("🌑🌒🌓🌔🌕🌖🌗🌘")
	ThemeClock = []rune("🕐🕑🕒🕓🕔🕕🕖🕗🕘🕙🕚🕛")
)

// Spinning displays a spinning symbol and a status line on a separate goroutine, until Done is called.
type Spinning struct {
	out    io.Writer
	theme  []rune
	status func() string
	period time.Duration

	wg     sync.WaitGroup
	cancel func()
}

// New starts a spinning display on os.Stdout. The status function, if not nil, is called at every tick
// and its result printed after the spinning symbol: it must be safe for concurrent use.
func New(ctx context.Context, theme []rune, status func() string) *Spinning {
	return start(ctx, os.Stdout, theme, status, 500*time.Millisecond)
}

func start(ctx context.Context, out io.Writer, theme []rune, status func() string, period time.Duration) *Spinning {
	if len(theme) == 0 {
		theme = ThemeASCII
	}
	s := &Spinning{out: out, theme: theme, status: status, period: period}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
	return s
}

func (s *Spinning) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	_, _ = fmt.Fprint(s.out, "\033[?25l")       // Hide cursor.
	defer fmt.Fprint(s.out, "\033[?25h\033[2K\r") // Restore cursor and clear the line.
	for idx := 0; ; idx = (idx + 1) % len(s.theme) {
		line := string(s.theme[idx])
		if s.status != nil {
			line += " " + s.status()
		}
		_, _ = fmt.Fprintf(s.out, "\r\033[2K%s", line)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Done stops the spinning display, and waits for it to clear its line.
func (s *Spinning) Done() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.wg.Wait()
}

// SafeInterrupt captures SIGINT (Ctrl+C) and SIGTERM and calls onInterrupt. If the program hasn't exited after
// gracePeriod, it resets the terminal and exits.
func SafeInterrupt(onInterrupt func(), gracePeriod time.Duration) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Println()
		klog.Errorf("Got interrupted (signal %q), shutting down... (%s)", sig, gracePeriod)
		if onInterrupt != nil {
			go onInterrupt()
		}
		time.Sleep(gracePeriod)
		Reset()
		klog.Fatalf("Graceful shutting down %s period expired, exiting.", gracePeriod)
	}()
}

// Reset terminal: make cursor visible, restore default terminal colors.
func Reset() {
	fmt.Print("\033[?25h\033[39;49;0m\n")
}
