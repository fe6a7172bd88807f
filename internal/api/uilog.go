package api

import (
	"sync"
	"time"
)

const defaultLogCapacity = 500

// LogEntry is one line of the UI log.
type LogEntry struct {
	Seq     int64     `json:"seq"`
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Source  string    `json:"source,omitempty"`
	Color   string    `json:"color,omitempty"`
}

// LogRing keeps the newest entries; sequence numbers never repeat.
type LogRing struct {
	mu      sync.Mutex
	cap     int
	seq     int64
	entries []LogEntry
}

func NewLogRing(capacity int) *LogRing {
	if capacity <= 0 {
		capacity = defaultLogCapacity
	}
	return &LogRing{cap: capacity}
}

func (r *LogRing) Append(e LogEntry) LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e.Seq = r.seq
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	r.entries = append(r.entries, e)
	if over := len(r.entries) - r.cap; over > 0 {
		r.entries = append(r.entries[:0:0], r.entries[over:]...)
	}
	return e
}

// Since returns entries with Seq greater than after, oldest first.
func (r *LogRing) Since(after int64) []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []LogEntry{}
	for _, e := range r.entries {
		if e.Seq > after {
			out = append(out, e)
		}
	}
	return out
}

func (r *LogRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
