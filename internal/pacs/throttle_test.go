package pacs

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"
)

func TestThrottleSetKBps(t *testing.T) {
	th := NewThrottle(4)
	if th.BytesPerSecond() != 4096 {
		t.Errorf("got %d", th.BytesPerSecond())
	}
	th.SetKBps(-1)
	if th.BytesPerSecond() != 0 {
		t.Errorf("negative must mean unlimited, got %d", th.BytesPerSecond())
	}
	var nilThrottle *Throttle
	if nilThrottle.BytesPerSecond() != 0 {
		t.Error("nil throttle must be unlimited")
	}
}

func TestThrottledReaderUnlimited(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100*1024)
	r := newThrottledReader(context.Background(), bytes.NewReader(data), int64(len(data)), NewThrottle(0), nil)
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(data) {
		t.Fatalf("read %d bytes", len(got))
	}
}

func TestThrottledReaderLimits(t *testing.T) {
	// 32 KiB at 16 KiB/s: the first 16 KiB is burst, the rest waits ~1s.
	data := bytes.Repeat([]byte("x"), 32*1024)
	th := NewThrottle(16)
	var last int64
	r := newThrottledReader(context.Background(), bytes.NewReader(data), int64(len(data)), th, func(sent, total int64) {
		last = sent
	})

	start := time.Now()
	if _, err := io.Copy(io.Discard, r); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 700*time.Millisecond {
		t.Errorf("throttle not applied, took %v", elapsed)
	}
	if last != int64(len(data)) {
		t.Errorf("progress ended at %d", last)
	}
}

func TestThrottledReaderHonoursContext(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 64*1024)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newThrottledReader(ctx, bytes.NewReader(data), int64(len(data)), NewThrottle(1), nil)
	if _, err := io.Copy(io.Discard, r); err == nil {
		t.Fatal("expected context error")
	}
}
