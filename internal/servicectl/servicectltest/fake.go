// Package servicectltest provides an in-memory servicectl.Controller.
package servicectltest

import (
	"context"
	"sync"

	"uploadsvc/internal/servicectl"
)

// Fake mimics the OS service manager for a single service.
type Fake struct {
	mu        sync.Mutex
	name      string
	installed bool
	state     servicectl.State
	pid       int
	nextPID   int

	// HangStop makes Stop leave the service in STOP_PENDING and time out,
	// like a service that ignores the stop request.
	HangStop bool
	// Err, when set, is returned by every operation.
	Err error
	// Calls records operation names in order.
	Calls   []string
	Options servicectl.InstallOptions
}

func New(name string) *Fake {
	return &Fake{name: name, state: servicectl.StateNotInstalled, nextPID: 4242}
}

// SetState forces the service into an installed state.
func (f *Fake) SetState(s servicectl.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installed = s != servicectl.StateNotInstalled
	f.state = s
	if s == servicectl.StateRunning && f.pid == 0 {
		f.pid = f.nextPID
	}
}

func (f *Fake) record(op string) error {
	f.Calls = append(f.Calls, op)
	return f.Err
}

func (f *Fake) Name() string { return f.name }

func (f *Fake) Query(ctx context.Context) (servicectl.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("query"); err != nil {
		return servicectl.Status{Service: f.name, State: servicectl.StateUnknown}, err
	}
	st := servicectl.Status{Service: f.name, State: f.state, Installed: f.installed}
	if f.state != servicectl.StateStopped && f.state != servicectl.StateNotInstalled {
		st.PID = f.pid
	}
	return st, nil
}

func (f *Fake) Install(ctx context.Context, opts servicectl.InstallOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("install"); err != nil {
		return err
	}
	if f.installed {
		return servicectl.ErrAlreadyExists
	}
	f.installed = true
	f.state = servicectl.StateStopped
	f.Options = opts
	return nil
}

func (f *Fake) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("start"); err != nil {
		return err
	}
	if !f.installed {
		return servicectl.ErrNotInstalled
	}
	if f.state == servicectl.StateRunning {
		return servicectl.ErrAlreadyRunning
	}
	f.nextPID++
	f.pid = f.nextPID
	f.state = servicectl.StateRunning
	return nil
}

func (f *Fake) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("stop"); err != nil {
		return err
	}
	return f.stopLocked()
}

func (f *Fake) stopLocked() error {
	if !f.installed {
		return servicectl.ErrNotInstalled
	}
	if f.state == servicectl.StateStopped {
		return servicectl.ErrNotRunning
	}
	if f.HangStop {
		f.state = servicectl.StateStopPending
		return servicectl.ErrTimeout
	}
	f.state = servicectl.StateStopped
	f.pid = 0
	return nil
}

func (f *Fake) Restart(ctx context.Context) error {
	if err := servicectl.IgnoreNoop(f.Stop(ctx)); err != nil {
		return err
	}
	return f.Start(ctx)
}

func (f *Fake) Remove(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("remove"); err != nil {
		return err
	}
	if !f.installed {
		return servicectl.ErrNotInstalled
	}
	f.installed = false
	f.state = servicectl.StateNotInstalled
	f.pid = 0
	return nil
}

func (f *Fake) ForceStop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("force-stop"); err != nil {
		return err
	}
	if !f.installed {
		return servicectl.ErrNotInstalled
	}
	if f.state == servicectl.StateStopped {
		return servicectl.ErrNotRunning
	}
	f.state = servicectl.StateStopped
	f.pid = 0
	return nil
}
