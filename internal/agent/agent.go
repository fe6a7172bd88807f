// Package agent is the workload hosted by the service.
package agent

import (
	"context"
	"os"
	"time"

	"uploadsvc/internal/folder"
	"uploadsvc/internal/logger"
)

// Agent logs a heartbeat on every tick and keeps today's folder present.
type Agent struct {
	Folder    folder.Monitor
	Heartbeat time.Duration
	Message   string

	// Now is the clock; tests replace it.
	Now func() time.Time
	// OnTick, when set, is called after every heartbeat.
	OnTick func(folderPath string)
}

func New(mon folder.Monitor, heartbeat time.Duration) *Agent {
	return &Agent{Folder: mon, Heartbeat: heartbeat, Message: "heartbeat", Now: time.Now}
}

// Run blocks until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	logger.Info("Agent starting (pid %d, heartbeat %v)", os.Getpid(), a.Heartbeat)

	dir := a.ensureFolder("")
	if dir != "" {
		logger.Info("Folder monitor started. Folder: %s", dir)
	}

	ticker := time.NewTicker(a.Heartbeat)
	defer ticker.Stop()

	a.tick(dir)
	for {
		select {
		case <-ticker.C:
			dir = a.ensureFolder(dir)
			a.tick(dir)
		case <-ctx.Done():
			logger.Info("Agent stopping")
			return nil
		}
	}
}

func (a *Agent) tick(dir string) {
	logger.Info("%s", a.Message)
	if a.OnTick != nil {
		a.OnTick(dir)
	}
}

// ensureFolder re-creates today's folder; a failure is logged and the
// previous path kept.
func (a *Agent) ensureFolder(prev string) string {
	dir, err := a.Folder.EnsureToday(a.Now())
	if err != nil {
		logger.Warn("Folder monitor failed: %v", err)
		return prev
	}
	if prev != "" && dir != prev {
		logger.Info("Day changed, monitoring %s", dir)
	}
	return dir
}
