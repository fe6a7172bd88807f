//go:build windows

package servicectl

import (
	"errors"
	"fmt"
	"testing"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

func TestMapState(t *testing.T) {
	tests := []struct {
		in   svc.State
		want State
	}{
		{svc.Running, StateRunning},
		{svc.Stopped, StateStopped},
		{svc.StartPending, StateStartPending},
		{svc.StopPending, StateStopPending},
		{svc.Paused, StatePaused},
		{svc.PausePending, StatePausePending},
		{svc.ContinuePending, StateContinuePending},
		{svc.State(99), StateUnknown},
	}
	for _, tt := range tests {
		if got := mapState(tt.in); got != tt.want {
			t.Errorf("mapState(%d) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestMapErr(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"missing", windows.ERROR_SERVICE_DOES_NOT_EXIST, ErrNotInstalled},
		{"exists", windows.ERROR_SERVICE_EXISTS, ErrAlreadyExists},
		{"running", windows.ERROR_SERVICE_ALREADY_RUNNING, ErrAlreadyRunning},
		{"not active", windows.ERROR_SERVICE_NOT_ACTIVE, ErrNotRunning},
		{"denied", windows.ERROR_ACCESS_DENIED, ErrAccessDenied},
		{"wrapped denied", fmt.Errorf("open: %w", windows.ERROR_ACCESS_DENIED), ErrAccessDenied},
		{"other", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErr(tt.in)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("got %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStartType(t *testing.T) {
	tests := map[string]uint32{
		"":         mgr.StartAutomatic,
		"auto":     mgr.StartAutomatic,
		"manual":   mgr.StartManual,
		"disabled": mgr.StartDisabled,
		"bogus":    mgr.StartAutomatic,
	}
	for in, want := range tests {
		if got := startType(in); got != want {
			t.Errorf("startType(%q) = %d, want %d", in, got, want)
		}
	}
}
