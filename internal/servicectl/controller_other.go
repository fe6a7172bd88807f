//go:build !windows && !linux

package servicectl

import "context"

type unsupportedController struct {
	name string
}

func newPlatform(name string, _ Options) Controller {
	return unsupportedController{name: name}
}

func (c unsupportedController) Name() string { return c.name }

func (c unsupportedController) Query(context.Context) (Status, error) {
	return Status{Service: c.name, State: StateUnknown}, ErrUnsupported
}

func (unsupportedController) Install(context.Context, InstallOptions) error { return ErrUnsupported }
func (unsupportedController) Start(context.Context) error                  { return ErrUnsupported }
func (unsupportedController) Stop(context.Context) error                   { return ErrUnsupported }
func (unsupportedController) Restart(context.Context) error                { return ErrUnsupported }
func (unsupportedController) Remove(context.Context) error                 { return ErrUnsupported }
func (unsupportedController) ForceStop(context.Context) error              { return ErrUnsupported }
