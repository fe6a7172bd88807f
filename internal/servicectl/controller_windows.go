//go:build windows

package servicectl

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"
	"uploadsvc/internal/logger"
)

type windowsController struct {
	name string
	opts Options
}

func newPlatform(name string, opts Options) Controller {
	return &windowsController{name: name, opts: opts}
}

func (c *windowsController) Name() string { return c.name }

func mapState(s svc.State) State {
	switch s {
	case svc.Running:
		return StateRunning
	case svc.Stopped:
		return StateStopped
	case svc.StartPending:
		return StateStartPending
	case svc.StopPending:
		return StateStopPending
	case svc.Paused:
		return StatePaused
	case svc.PausePending:
		return StatePausePending
	case svc.ContinuePending:
		return StateContinuePending
	default:
		return StateUnknown
	}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST):
		return ErrNotInstalled
	case errors.Is(err, windows.ERROR_SERVICE_EXISTS):
		return ErrAlreadyExists
	case errors.Is(err, windows.ERROR_SERVICE_ALREADY_RUNNING):
		return ErrAlreadyRunning
	case errors.Is(err, windows.ERROR_SERVICE_NOT_ACTIVE):
		return ErrNotRunning
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return ErrAccessDenied
	}
	return err
}

func startType(s string) uint32 {
	switch s {
	case "manual":
		return mgr.StartManual
	case "disabled":
		return mgr.StartDisabled
	default:
		return mgr.StartAutomatic
	}
}

// Query opens the SCM with connect rights only, so status works for
// non-administrators.
func (c *windowsController) Query(ctx context.Context) (Status, error) {
	st := Status{Service: c.name, State: StateUnknown}

	scm, err := windows.OpenSCManager(nil, nil, windows.SC_MANAGER_CONNECT)
	if err != nil {
		return st, mapErr(err)
	}
	defer windows.CloseServiceHandle(scm)

	namePtr, err := windows.UTF16PtrFromString(c.name)
	if err != nil {
		return st, err
	}
	h, err := windows.OpenService(scm, namePtr, windows.SERVICE_QUERY_STATUS)
	if err != nil {
		if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
			st.State = StateNotInstalled
			return st, nil
		}
		return st, mapErr(err)
	}
	s := &mgr.Service{Name: c.name, Handle: h}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return st, mapErr(err)
	}
	st.Installed = true
	st.State = mapState(status.State)
	st.PID = int(status.ProcessId)
	return st, nil
}

func (c *windowsController) open() (*mgr.Mgr, *mgr.Service, error) {
	m, err := mgr.Connect()
	if err != nil {
		return nil, nil, mapErr(err)
	}
	s, err := m.OpenService(c.name)
	if err != nil {
		m.Disconnect()
		return nil, nil, mapErr(err)
	}
	return m, s, nil
}

func (c *windowsController) Install(ctx context.Context, opts InstallOptions) error {
	m, err := mgr.Connect()
	if err != nil {
		return mapErr(err)
	}
	defer m.Disconnect()

	if s, err := m.OpenService(c.name); err == nil {
		s.Close()
		return ErrAlreadyExists
	}

	cfg := mgr.Config{
		DisplayName: opts.DisplayName,
		Description: opts.Description,
		StartType:   startType(opts.Startup),
	}
	if opts.Username != "" {
		cfg.ServiceStartName = opts.Username
		cfg.Password = opts.Password
	}

	s, err := m.CreateService(c.name, opts.Executable, cfg, opts.Args...)
	if err != nil {
		return mapErr(err)
	}
	defer s.Close()

	if err := eventlog.InstallAsEventCreate(c.name, eventlog.Error|eventlog.Warning|eventlog.Info); err != nil {
		// An existing source from an earlier install is fine.
		logger.Debug("eventlog source %s: %v", c.name, err)
	}
	logger.Info("Service %q installed (%s)", c.name, opts.Executable)
	return nil
}

func (c *windowsController) Start(ctx context.Context) error {
	m, s, err := c.open()
	if err != nil {
		return err
	}
	defer m.Disconnect()
	defer s.Close()

	if err := s.Start(); err != nil {
		return mapErr(err)
	}
	return nil
}

func (c *windowsController) Stop(ctx context.Context) error {
	m, s, err := c.open()
	if err != nil {
		return err
	}
	defer m.Disconnect()
	defer s.Close()

	if _, err := s.Control(svc.Stop); err != nil {
		return mapErr(err)
	}
	_, err = WaitFor(ctx, c, StateStopped, c.opts.StopTimeout, c.opts.PollInterval)
	return err
}

func (c *windowsController) Restart(ctx context.Context) error {
	if err := IgnoreNoop(c.Stop(ctx)); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return nil
}

func (c *windowsController) Remove(ctx context.Context) error {
	m, s, err := c.open()
	if err != nil {
		return err
	}
	defer m.Disconnect()
	defer s.Close()

	if status, err := s.Query(); err == nil && status.State != svc.Stopped {
		if _, err := s.Control(svc.Stop); err != nil {
			logger.Warn("Could not stop service %q: %v", c.name, err)
		} else if _, err := WaitFor(ctx, c, StateStopped, c.opts.StopTimeout, c.opts.PollInterval); err != nil {
			logger.Warn("Service %q did not stop in time: %v", c.name, err)
		}
	}

	if err := s.Delete(); err != nil {
		return mapErr(err)
	}
	if err := eventlog.Remove(c.name); err != nil {
		logger.Debug("eventlog remove %s: %v", c.name, err)
	}
	logger.Info("Service %q removed", c.name)
	return nil
}

// ForceStop kills the service process. It is the escape hatch for a stop
// that hangs; the SCM notices the exit and reports STOPPED.
func (c *windowsController) ForceStop(ctx context.Context) error {
	st, err := c.Query(ctx)
	if err != nil {
		return err
	}
	if !st.Installed {
		return ErrNotInstalled
	}
	if st.State == StateStopped {
		return ErrNotRunning
	}

	if st.PID > 0 {
		err = killPID(st.PID)
	} else {
		err = errors.New("no process id reported")
	}
	if err != nil {
		logger.Warn("PID kill failed (%v), falling back to taskkill", err)
		out, terr := exec.CommandContext(ctx, "taskkill", "/F", "/FI", fmt.Sprintf("SERVICES eq %s", c.name)).CombinedOutput()
		if terr != nil {
			return fmt.Errorf("taskkill: %w (%s)", terr, strings.TrimSpace(string(out)))
		}
	}

	_, err = WaitFor(ctx, c, StateStopped, 10*time.Second, c.opts.PollInterval)
	return err
}
