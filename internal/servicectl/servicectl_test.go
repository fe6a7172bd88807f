package servicectl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"uploadsvc/internal/servicectl"
	"uploadsvc/internal/servicectl/servicectltest"
)

func TestIgnoreNoop(t *testing.T) {
	if servicectl.IgnoreNoop(servicectl.ErrAlreadyRunning) != nil {
		t.Error("ErrAlreadyRunning should be ignored")
	}
	if servicectl.IgnoreNoop(servicectl.ErrNotRunning) != nil {
		t.Error("ErrNotRunning should be ignored")
	}
	if !errors.Is(servicectl.IgnoreNoop(servicectl.ErrNotInstalled), servicectl.ErrNotInstalled) {
		t.Error("ErrNotInstalled must pass through")
	}
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	f := servicectltest.New("TestUploaderService")

	st, _ := f.Query(ctx)
	if st.State != servicectl.StateNotInstalled || st.Installed {
		t.Fatalf("expected not installed, got %+v", st)
	}

	if err := f.Install(ctx, servicectl.InstallOptions{Executable: "uploadsvc.exe"}); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := f.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if st, _ = f.Query(ctx); !st.Running() {
		t.Fatalf("expected running, got %s", st.State)
	}
	if err := f.Start(ctx); !errors.Is(err, servicectl.ErrAlreadyRunning) {
		t.Errorf("second start: got %v", err)
	}

	if err := f.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if st, _ = f.Query(ctx); st.State != servicectl.StateStopped {
		t.Fatalf("expected stopped, got %s", st.State)
	}

	if err := f.Remove(ctx); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if st, _ = f.Query(ctx); st.Installed {
		t.Fatalf("expected removed, got %+v", st)
	}
}

func TestForceStopAfterHungStop(t *testing.T) {
	ctx := context.Background()
	f := servicectltest.New("svc")
	f.SetState(servicectl.StateRunning)
	f.HangStop = true

	if err := f.Stop(ctx); !errors.Is(err, servicectl.ErrTimeout) {
		t.Fatalf("expected hung stop to time out, got %v", err)
	}
	if st, _ := f.Query(ctx); st.State != servicectl.StateStopPending {
		t.Fatalf("expected STOP_PENDING, got %s", st.State)
	}

	if err := f.ForceStop(ctx); err != nil {
		t.Fatalf("force stop: %v", err)
	}
	if st, _ := f.Query(ctx); st.State != servicectl.StateStopped {
		t.Fatalf("expected STOPPED after force stop, got %s", st.State)
	}
}

func TestWaitFor(t *testing.T) {
	ctx := context.Background()
	f := servicectltest.New("svc")
	f.SetState(servicectl.StateStopped)

	st, err := servicectl.WaitFor(ctx, f, servicectl.StateStopped, time.Second, time.Millisecond)
	if err != nil || st.State != servicectl.StateStopped {
		t.Fatalf("WaitFor stopped: %v %+v", err, st)
	}

	f.SetState(servicectl.StateStopPending)
	_, err = servicectl.WaitFor(ctx, f, servicectl.StateStopped, 20*time.Millisecond, 5*time.Millisecond)
	if !errors.Is(err, servicectl.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	f.SetState(servicectl.StateNotInstalled)
	if _, err := servicectl.WaitFor(ctx, f, servicectl.StateStopped, time.Second, time.Millisecond); err != nil {
		t.Fatalf("a removed service counts as stopped: %v", err)
	}
}
