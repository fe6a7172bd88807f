package pacs

import (
	"context"
	"io"
	"sync/atomic"

	"golang.org/x/time/rate"
)

const chunkSize = 32 * 1024

// Throttle holds the upload bandwidth cap in bytes per second. It can be
// changed while uploads are running; zero means unlimited.
type Throttle struct {
	bps atomic.Int64
}

func NewThrottle(kbps int) *Throttle {
	t := &Throttle{}
	t.SetKBps(kbps)
	return t
}

// SetKBps sets the cap in KiB/s.
func (t *Throttle) SetKBps(kbps int) {
	if kbps < 0 {
		kbps = 0
	}
	t.bps.Store(int64(kbps) * 1024)
}

// BytesPerSecond returns the current cap.
func (t *Throttle) BytesPerSecond() int64 {
	if t == nil {
		return 0
	}
	return t.bps.Load()
}

// ProgressFunc receives bytes sent so far and the total.
type ProgressFunc func(sent, total int64)

// throttledReader paces reads through a token bucket whose rate follows the
// Throttle on every chunk.
type throttledReader struct {
	ctx      context.Context
	r        io.Reader
	throttle *Throttle
	limiter  *rate.Limiter
	progress ProgressFunc

	sent, total int64
}

func newThrottledReader(ctx context.Context, r io.Reader, total int64, t *Throttle, progress ProgressFunc) *throttledReader {
	tr := &throttledReader{
		ctx:      ctx,
		r:        r,
		throttle: t,
		limiter:  rate.NewLimiter(rate.Inf, chunkSize),
		progress: progress,
		total:    total,
	}
	tr.report()
	return tr
}

func (tr *throttledReader) Read(p []byte) (int, error) {
	n := len(p)
	if n > chunkSize {
		n = chunkSize
	}
	bps := tr.throttle.BytesPerSecond()
	if bps > 0 {
		if int64(n) > bps {
			n = int(bps)
		}
		if tr.limiter.Limit() != rate.Limit(bps) {
			tr.limiter.SetLimit(rate.Limit(bps))
			tr.limiter.SetBurst(int(min(bps, chunkSize)))
		}
	} else if tr.limiter.Limit() != rate.Inf {
		tr.limiter.SetLimit(rate.Inf)
	}

	n, err := tr.r.Read(p[:n])
	if n > 0 {
		if bps > 0 {
			if werr := tr.limiter.WaitN(tr.ctx, n); werr != nil {
				return n, werr
			}
		}
		tr.sent += int64(n)
		tr.report()
	}
	return n, err
}

func (tr *throttledReader) report() {
	if tr.progress != nil {
		tr.progress(tr.sent, tr.total)
	}
}
