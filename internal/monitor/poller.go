package monitor

import (
	"context"
	"time"

	"uploadsvc/internal/api"
)

const DefaultInterval = 2 * time.Second

// API is the subset of apiclient.Client the monitor needs.
type API interface {
	Status(ctx context.Context) (api.StatusResponse, error)
	Action(ctx context.Context, path string) (api.ActionResponse, error)
	Logs(ctx context.Context, after int64) (api.LogsResponse, error)
}

// Poller issues requests concurrently and funnels their outcomes into one
// channel.
type Poller struct {
	client   API
	interval time.Duration
	events   chan Event
	// lastLog is read by poll goroutines; the UI publishes it via SetLastLog.
	lastLog chan int64
}

func NewPoller(c API, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		client:   c,
		interval: interval,
		events:   make(chan Event, 16),
		lastLog:  make(chan int64, 1),
	}
}

func (p *Poller) Events() <-chan Event { return p.events }

// SetLastLog records the newest log entry already shown.
func (p *Poller) SetLastLog(seq int64) {
	select {
	case <-p.lastLog:
	default:
	}
	p.lastLog <- seq
}

// Run polls status and the UI log every interval until ctx ends.
func (p *Poller) Run(ctx context.Context) {
	var after int64
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case seq := <-p.lastLog:
			after = seq
		default:
		}
		p.poll(ctx, after)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context, after int64) {
	st, err := p.client.Status(ctx)
	if err != nil {
		p.emit(ctx, Event{Path: StatusPath, Err: err})
		return
	}
	ev := Event{Path: StatusPath, Status: &st}
	if logs, err := p.client.Logs(ctx, after); err == nil {
		ev.Logs = logs.Entries
	}
	p.emit(ctx, ev)
}

// Do runs an action in the background.
func (p *Poller) Do(ctx context.Context, path string) {
	go func() {
		resp, err := p.client.Action(ctx, path)
		if err != nil {
			p.emit(ctx, Event{Path: path, Err: err})
			return
		}
		p.emit(ctx, Event{Path: path, Action: &resp})
	}()
}

func (p *Poller) emit(ctx context.Context, ev Event) {
	select {
	case p.events <- ev:
	case <-ctx.Done():
	}
}
