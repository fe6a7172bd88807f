//go:build linux

package servicectl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// fakeSystemd answers systemctl invocations from an in-memory unit state.
type fakeSystemd struct {
	active string
	sub    string
	pid    int
	calls  []string
	killed []int
	// stopJob is set while a --no-block stop is queued.
	stopJob bool
	// fail makes the named verb exit with an error.
	fail map[string]error
}

// processKilled models SIGKILL of the main PID. Restart=on-failure brings the
// unit back unless a stop job is pending.
func (f *fakeSystemd) processKilled() {
	if f.stopJob {
		f.active, f.sub, f.pid, f.stopJob = "inactive", "dead", 0, false
		return
	}
	f.active, f.sub, f.pid = "activating", "auto-restart", 0
}

func (f *fakeSystemd) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, strings.Join(args, " "))
	if err := f.fail[args[0]]; err != nil {
		return []byte("Failed to " + args[0]), err
	}
	switch args[0] {
	case "show":
		if f.active == "" {
			return []byte("LoadState=not-found\nActiveState=inactive\nSubState=dead\nMainPID=0\n"), nil
		}
		return []byte("LoadState=loaded\nActiveState=" + f.active + "\nSubState=" + f.sub +
			"\nMainPID=" + strconv.Itoa(f.pid) + "\n"), nil
	case "start":
		f.active, f.sub, f.pid = "active", "running", 100
	case "stop":
		if len(args) > 1 && args[1] == "--no-block" {
			f.stopJob = true
			f.active, f.sub = "deactivating", "stop-sigterm"
			break
		}
		f.active, f.sub, f.pid = "inactive", "dead", 0
	case "kill":
		f.processKilled()
	}
	return nil, nil
}

func newTestController(t *testing.T, sd *fakeSystemd) *systemdController {
	return &systemdController{
		name:    "uploadsvc-test",
		opts:    Options{StopTimeout: time.Second, PollInterval: time.Millisecond},
		unitDir: t.TempDir(),
		run:     sd.run,
		kill: func(pid int) error {
			sd.killed = append(sd.killed, pid)
			sd.processKilled()
			return nil
		},
	}
}

func TestSystemdLifecycle(t *testing.T) {
	ctx := context.Background()
	sd := &fakeSystemd{}
	c := newTestController(t, sd)

	st, err := c.Query(ctx)
	if err != nil || st.State != StateNotInstalled {
		t.Fatalf("expected not installed, got %+v %v", st, err)
	}

	if err := c.Install(ctx, InstallOptions{Executable: "/usr/bin/uploadsvc", Args: []string{"run"}, Startup: "auto"}); err != nil {
		t.Fatalf("install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(c.unitDir, "uploadsvc-test.service")); err != nil {
		t.Fatalf("unit file not written: %v", err)
	}
	sd.active, sd.sub = "inactive", "dead"

	if err := c.Install(ctx, InstallOptions{Executable: "/usr/bin/uploadsvc"}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("second install: got %v", err)
	}

	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if st, _ := c.Query(ctx); !st.Running() || st.PID != 100 {
		t.Fatalf("expected running with pid, got %+v", st)
	}
	if err := c.Start(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("start while running: got %v", err)
	}

	if err := c.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := c.Stop(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("stop while stopped: got %v", err)
	}

	if err := c.Remove(ctx); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(c.unitDir, "uploadsvc-test.service")); !os.IsNotExist(err) {
		t.Errorf("unit file should be gone, stat err = %v", err)
	}
}

func TestSystemdForceStop(t *testing.T) {
	ctx := context.Background()
	sd := &fakeSystemd{active: "deactivating", sub: "stop-sigterm", pid: 321}
	c := newTestController(t, sd)

	if err := c.ForceStop(ctx); err != nil {
		t.Fatalf("force stop: %v", err)
	}
	if len(sd.killed) != 1 || sd.killed[0] != 321 {
		t.Errorf("expected pid 321 killed, got %v", sd.killed)
	}
	if st, _ := c.Query(ctx); st.State != StateStopped {
		t.Errorf("expected STOPPED, got %s", st.State)
	}

	if err := c.ForceStop(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("force stop while stopped: got %v", err)
	}
}

func TestSystemdForceStopFallback(t *testing.T) {
	ctx := context.Background()
	sd := &fakeSystemd{active: "active", sub: "running", pid: 0}
	c := newTestController(t, sd)

	if err := c.ForceStop(ctx); err != nil {
		t.Fatalf("force stop: %v", err)
	}
	last := sd.calls[len(sd.calls)-2]
	if !strings.HasPrefix(last, "kill --signal=") {
		t.Errorf("expected systemctl kill fallback, calls: %v", sd.calls)
	}
}

func TestSystemdForceStopRunningStaysStopped(t *testing.T) {
	ctx := context.Background()
	sd := &fakeSystemd{active: "active", sub: "running", pid: 555}
	c := newTestController(t, sd)

	if err := c.ForceStop(ctx); err != nil {
		t.Fatalf("force stop: %v (calls %v)", err, sd.calls)
	}
	if st, _ := c.Query(ctx); st.State != StateStopped {
		t.Fatalf("expected STOPPED, got %s", st.State)
	}
	queued := false
	for _, call := range sd.calls {
		if call == "stop --no-block uploadsvc-test.service" {
			queued = true
		}
	}
	if !queued {
		t.Errorf("expected a queued stop job before the kill, calls: %v", sd.calls)
	}
	if len(sd.killed) != 1 || sd.killed[0] != 555 {
		t.Errorf("expected pid 555 killed, got %v", sd.killed)
	}
}

func TestSystemdKillWithoutStopJobRestarts(t *testing.T) {
	sd := &fakeSystemd{active: "active", sub: "running", pid: 555}
	sd.processKilled()
	st := parseSystemctlShow("x", "LoadState=loaded\nActiveState="+sd.active+"\nSubState="+sd.sub+"\nMainPID=0\n")
	if st.State != StateStartPending {
		t.Errorf("bare kill should auto-restart, got %s", st.State)
	}
}

func TestSystemdInstallFailureRemovesUnit(t *testing.T) {
	ctx := context.Background()
	for _, verb := range []string{"daemon-reload", "enable"} {
		t.Run(verb, func(t *testing.T) {
			sd := &fakeSystemd{fail: map[string]error{verb: errors.New("exit status 1")}}
			c := newTestController(t, sd)

			opts := InstallOptions{Executable: "/usr/bin/uploadsvc", Startup: "auto"}
			if err := c.Install(ctx, opts); err == nil {
				t.Fatal("expected install error")
			}
			if _, err := os.Stat(c.unitPath()); !os.IsNotExist(err) {
				t.Fatalf("unit file left behind, stat err = %v", err)
			}

			delete(sd.fail, verb)
			if err := c.Install(ctx, opts); err != nil {
				t.Errorf("retry after failure: %v", err)
			}
		})
	}
}
