// Package svchost runs the workload either under the Windows service
// control manager or in the foreground.
package svchost

import (
	"context"
	"errors"
	"os"
	"time"

	"uploadsvc/internal/logger"
)

// Workload runs until ctx is cancelled.
type Workload func(ctx context.Context) error

// ErrStopTimeout is returned when the workload outlives the stop timeout.
var ErrStopTimeout = errors.New("workload did not stop in time")

type Options struct {
	Name        string
	StopTimeout time.Duration
}

// BootRecord describes the process at startup.
type BootRecord struct {
	Service    string
	Time       time.Time
	PID        int
	Executable string
	WorkDir    string
}

func NewBootRecord(name string) BootRecord {
	exe, _ := os.Executable()
	wd, _ := os.Getwd()
	return BootRecord{
		Service:    name,
		Time:       time.Now(),
		PID:        os.Getpid(),
		Executable: exe,
		WorkDir:    wd,
	}
}

func (b BootRecord) Log() {
	logger.Info("Service %s booting at %s (pid %d, exe %s, cwd %s)",
		b.Service, b.Time.Format(time.RFC3339), b.PID, b.Executable, b.WorkDir)
}

// Run hosts work. Under the SCM it registers a handler, otherwise it blocks
// until SIGINT or SIGTERM.
func Run(opts Options, work Workload) error {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 15 * time.Second
	}
	NewBootRecord(opts.Name).Log()
	return runPlatform(opts, work)
}

// Supervise starts work and, once ctx ends, waits up to stopTimeout for it
// to return.
func Supervise(ctx context.Context, work Workload, stopTimeout time.Duration) error {
	wctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- work(wctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	cancel()
	select {
	case err := <-done:
		return err
	case <-time.After(stopTimeout):
		logger.Warn("Workload still running after %v", stopTimeout)
		return ErrStopTimeout
	}
}
