package svchost

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSuperviseStopsWorkload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	work := func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return nil
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if err := Supervise(ctx, work, time.Second); err != nil {
		t.Fatalf("Supervise returned %v", err)
	}
	select {
	case <-stopped:
	default:
		t.Error("workload context was not cancelled")
	}
}

func TestSuperviseStopTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)
	work := func(context.Context) error {
		<-release
		return nil
	}
	err := Supervise(ctx, work, 20*time.Millisecond)
	if !errors.Is(err, ErrStopTimeout) {
		t.Fatalf("expected ErrStopTimeout, got %v", err)
	}
}

func TestSuperviseWorkloadError(t *testing.T) {
	boom := errors.New("boom")
	err := Supervise(context.Background(), func(context.Context) error { return boom }, time.Second)
	if !errors.Is(err, boom) {
		t.Fatalf("expected workload error, got %v", err)
	}
}

func TestBootRecord(t *testing.T) {
	b := NewBootRecord("TestUploaderService")
	if b.Service != "TestUploaderService" || b.PID == 0 || b.Time.IsZero() {
		t.Errorf("incomplete boot record: %+v", b)
	}
	b.Log()
}
