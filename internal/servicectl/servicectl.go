// Package servicectl registers, controls and queries the OS service that
// hosts the uploader. The OS service manager owns all state; this package
// only translates requests and normalizes what the manager reports.
package servicectl

import (
	"context"
	"errors"
	"time"
)

// State is the service state as reported by the OS, in sc.exe vocabulary.
type State string

const (
	StateRunning         State = "RUNNING"
	StateStopped         State = "STOPPED"
	StateStartPending    State = "START_PENDING"
	StateStopPending     State = "STOP_PENDING"
	StatePaused          State = "PAUSED"
	StatePausePending    State = "PAUSE_PENDING"
	StateContinuePending State = "CONTINUE_PENDING"
	StateNotInstalled    State = "NOT_INSTALLED"
	StateUnknown         State = "UNKNOWN"
)

var (
	ErrNotInstalled   = errors.New("service is not installed")
	ErrAlreadyExists  = errors.New("service already exists")
	ErrNotRunning     = errors.New("service is not running")
	ErrAlreadyRunning = errors.New("service is already running")
	ErrUnsupported    = errors.New("service management is not supported on this platform")
	ErrAccessDenied   = errors.New("access denied (administrator privileges required)")
	ErrTimeout        = errors.New("timed out waiting for service state")
)

// Status is a snapshot of the service as seen by the OS service manager.
type Status struct {
	Service   string `json:"service"`
	State     State  `json:"state"`
	PID       int    `json:"pid,omitempty"`
	Installed bool   `json:"installed"`
}

// Running reports whether the service is fully running.
func (s Status) Running() bool {
	return s.State == StateRunning
}

// InstallOptions describe the service registration.
type InstallOptions struct {
	Executable  string
	Args        []string
	DisplayName string
	Description string
	Startup     string // "auto", "manual", "disabled"
	Username    string
	Password    string
}

// Controller drives one named service through the OS service manager.
type Controller interface {
	Name() string
	Query(ctx context.Context) (Status, error)
	Install(ctx context.Context, opts InstallOptions) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	Remove(ctx context.Context) error
	ForceStop(ctx context.Context) error
}

// Options tune controller behaviour.
type Options struct {
	// StopTimeout bounds how long Stop waits for STOPPED.
	StopTimeout time.Duration
	// PollInterval is the state polling period while waiting.
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.StopTimeout <= 0 {
		o.StopTimeout = 30 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 300 * time.Millisecond
	}
	return o
}

// New returns the controller for the current platform.
func New(name string, opts Options) Controller {
	return newPlatform(name, opts.withDefaults())
}

// IgnoreNoop maps "already in the requested state" errors to nil.
func IgnoreNoop(err error) error {
	if errors.Is(err, ErrAlreadyRunning) || errors.Is(err, ErrNotRunning) {
		return nil
	}
	return err
}

// WaitFor polls Query until the service reaches want, ctx ends or timeout elapses.
func WaitFor(ctx context.Context, c Controller, want State, timeout, interval time.Duration) (Status, error) {
	deadline := time.Now().Add(timeout)
	for {
		st, err := c.Query(ctx)
		if err != nil {
			return st, err
		}
		if st.State == want {
			return st, nil
		}
		if want == StateStopped && !st.Installed {
			return st, nil
		}
		if time.Now().After(deadline) {
			return st, ErrTimeout
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-time.After(interval):
		}
	}
}
