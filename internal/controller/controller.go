// Package controller defines the boundary between the daemon and the subsystem
// that serves requests with the active drivers and loaded workspaces.
package controller

import (
	"context"

	"git.home.luguber.info/inful/driverd/internal/driver"
)

// Controller consumes the active driver set and the workspace list.
//
// The daemon calls AddDriver and LoadWorkspace during boot, then Start once.
// Stop is called during shutdown whether or not Start ran, and once more
// after Start returns when shutdown began while Start was pending, so it
// must tolerate repeated calls.
type Controller interface {
	AddDriver(name string, drv driver.Driver)
	LoadWorkspace(ctx context.Context, path string) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Snapshot is the controller's view of what it serves.
type Snapshot struct {
	Started    bool     `json:"started"`
	Drivers    []string `json:"drivers"`
	Running    []string `json:"running"`
	Workspaces []string `json:"workspaces"`
}
