package driver

import "context"

// Driver is the capability set every driver implements.
//
// Start and Stop run to completion; callers do not cancel them. Stop must be
// safe on a driver that never started or has already stopped.
type Driver interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Running() bool
}

// Entry is a registered driver with the descriptor it was built from.
type Entry struct {
	Descriptor Descriptor
	Driver     Driver
}

// Name returns the registry key.
func (e Entry) Name() string { return e.Descriptor.Name }
