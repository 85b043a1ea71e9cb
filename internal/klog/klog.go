// Package klog is the kernel's structured logger: one zerolog sink, tagged
// by component, standing in for the scattered cprintf/fmt.Printf calls of
// the teaching kernel this package descends from.
package klog

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu   sync.Mutex
	base = zerolog.New(defaultWriter()).With().Timestamp().Logger()
)

func defaultWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
}

// SetOutput redirects the base logger, mainly for tests that want to
// capture kernel chatter instead of printing it.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = zerolog.New(w).With().Timestamp().Logger()
}

// For returns a logger tagged with the given kernel component name, e.g.
// "sched", "swap", "proc", "pagefile".
func For(component string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base.With().Str("component", component).Logger()
}
