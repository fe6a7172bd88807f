//go:build !windows

package svchost

import (
	"context"
	"os/signal"
	"syscall"
)

func runPlatform(opts Options, work Workload) error {
	return runForeground(opts, work)
}

func runForeground(opts Options, work Workload) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Supervise(ctx, work, opts.StopTimeout)
}
