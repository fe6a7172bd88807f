//go:build windows

package svchost

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"

	"uploadsvc/internal/logger"
)

func runPlatform(opts Options, work Workload) error {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return fmt.Errorf("detect service context: %w", err)
	}
	if !isService {
		return runForeground(opts, work)
	}

	h := &handler{opts: opts, work: work}
	if el, err := eventlog.Open(opts.Name); err == nil {
		h.elog = el
		defer el.Close()
	}
	if err := svc.Run(opts.Name, h); err != nil {
		return fmt.Errorf("run service %s: %w", opts.Name, err)
	}
	return h.err
}

func runForeground(opts Options, work Workload) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return Supervise(ctx, work, opts.StopTimeout)
}

type handler struct {
	opts Options
	work Workload
	elog *eventlog.Log
	err  error
}

func (h *handler) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown

	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Supervise(ctx, h.work, h.opts.StopTimeout) }()

	changes <- svc.Status{State: svc.Running, Accepts: accepted}
	logger.Info("Service %s running", h.opts.Name)

loop:
	for {
		select {
		case err := <-done:
			// Workload returned on its own.
			h.report(err)
			break loop
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				logger.Info("Service %s stop requested", h.opts.Name)
				changes <- svc.Status{State: svc.StopPending}
				cancel()
				h.report(<-done)
				break loop
			default:
				logger.Warn("Unexpected control request #%d", c.Cmd)
			}
		}
	}

	changes <- svc.Status{State: svc.StopPending}
	if h.err != nil {
		return true, 1
	}
	return false, 0
}

func (h *handler) report(err error) {
	if err == nil {
		return
	}
	h.err = err
	logger.Error("Workload failed: %v", err)
	if h.elog != nil {
		_ = h.elog.Error(1, fmt.Sprintf("%s: %v", h.opts.Name, err))
	}
}
