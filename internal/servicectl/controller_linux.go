//go:build linux

package servicectl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"uploadsvc/internal/logger"
)

const unitDir = "/etc/systemd/system"

// commandRunner executes a system tool and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type systemdController struct {
	name    string
	opts    Options
	unitDir string
	run     commandRunner
	kill    func(pid int) error
}

func newPlatform(name string, opts Options) Controller {
	return &systemdController{name: name, opts: opts, unitDir: unitDir, run: execRunner, kill: killPID}
}

func (c *systemdController) Name() string { return c.name }

func (c *systemdController) unit() string { return c.name + ".service" }

func (c *systemdController) unitPath() string { return filepath.Join(c.unitDir, c.unit()) }

func (c *systemdController) systemctl(ctx context.Context, args ...string) (string, error) {
	out, err := c.run(ctx, "systemctl", args...)
	text := strings.TrimSpace(string(out))
	if err != nil {
		if strings.Contains(text, "Access denied") || strings.Contains(text, "Interactive authentication required") {
			return text, ErrAccessDenied
		}
		if strings.Contains(text, "not found") || strings.Contains(text, "not loaded") {
			return text, ErrNotInstalled
		}
		return text, fmt.Errorf("systemctl %s: %w (%s)", strings.Join(args, " "), err, text)
	}
	return text, nil
}

func (c *systemdController) Query(ctx context.Context) (Status, error) {
	out, err := c.systemctl(ctx, "show", c.unit(), "-p", "LoadState,ActiveState,SubState,MainPID")
	if err != nil {
		if errors.Is(err, ErrNotInstalled) {
			return Status{Service: c.name, State: StateNotInstalled}, nil
		}
		return Status{Service: c.name, State: StateUnknown}, err
	}
	return parseSystemctlShow(c.name, out), nil
}

func (c *systemdController) Install(ctx context.Context, opts InstallOptions) error {
	if _, err := os.Stat(c.unitPath()); err == nil {
		return ErrAlreadyExists
	}
	if err := os.WriteFile(c.unitPath(), []byte(renderUnit(opts)), 0644); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return ErrAccessDenied
		}
		return fmt.Errorf("write unit file: %w", err)
	}
	logger.Info("Created systemd unit at: %s", c.unitPath())

	if err := c.register(ctx, opts); err != nil {
		// A half-registered unit would make every retry fail with ErrAlreadyExists.
		if rmErr := os.Remove(c.unitPath()); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn("Could not remove unit file %s: %v", c.unitPath(), rmErr)
		}
		return err
	}
	return nil
}

func (c *systemdController) register(ctx context.Context, opts InstallOptions) error {
	if _, err := c.systemctl(ctx, "daemon-reload"); err != nil {
		return err
	}
	if opts.Startup == "" || opts.Startup == "auto" {
		if _, err := c.systemctl(ctx, "enable", c.unit()); err != nil {
			return err
		}
	}
	return nil
}

func (c *systemdController) Start(ctx context.Context) error {
	st, err := c.Query(ctx)
	if err != nil {
		return err
	}
	if !st.Installed {
		return ErrNotInstalled
	}
	if st.Running() {
		return ErrAlreadyRunning
	}
	_, err = c.systemctl(ctx, "start", c.unit())
	return err
}

func (c *systemdController) Stop(ctx context.Context) error {
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
	if _, err := c.systemctl(ctx, "stop", c.unit()); err != nil {
		return err
	}
	_, err = WaitFor(ctx, c, StateStopped, c.opts.StopTimeout, c.opts.PollInterval)
	return err
}

func (c *systemdController) Restart(ctx context.Context) error {
	if err := IgnoreNoop(c.Stop(ctx)); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return nil
}

func (c *systemdController) Remove(ctx context.Context) error {
	st, err := c.Query(ctx)
	if err != nil {
		return err
	}
	if !st.Installed {
		return ErrNotInstalled
	}
	if err := IgnoreNoop(c.Stop(ctx)); err != nil {
		logger.Warn("Could not stop service %q: %v", c.name, err)
	}
	if _, err := c.systemctl(ctx, "disable", c.unit()); err != nil {
		logger.Debug("systemctl disable failed: %v", err)
	}
	if err := os.Remove(c.unitPath()); err != nil && !os.IsNotExist(err) {
		if errors.Is(err, os.ErrPermission) {
			return ErrAccessDenied
		}
		return fmt.Errorf("remove unit file: %w", err)
	}
	if _, err := c.systemctl(ctx, "daemon-reload"); err != nil {
		logger.Debug("systemctl daemon-reload failed: %v", err)
	}
	logger.Info("Service %q removed", c.name)
	return nil
}

func (c *systemdController) ForceStop(ctx context.Context) error {
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

	// Killing the main PID alone counts as a failure and Restart=on-failure
	// brings the unit back. A pending stop job suppresses the restart.
	if _, err := c.systemctl(ctx, "stop", "--no-block", c.unit()); err != nil {
		logger.Warn("Could not queue stop job for %s: %v", c.unit(), err)
	}

	if st.PID > 0 {
		err = c.kill(st.PID)
	} else {
		err = errors.New("no main pid reported")
	}
	if err != nil {
		logger.Warn("PID kill failed (%v), falling back to systemctl kill", err)
		if _, err := c.systemctl(ctx, "kill", "--signal=SIGKILL", c.unit()); err != nil {
			return err
		}
	}

	_, err = WaitFor(ctx, c, StateStopped, 10*time.Second, c.opts.PollInterval)
	return err
}
