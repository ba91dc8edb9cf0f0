// Package daemon runs the driverd lifecycle: an ordered boot sequence over the
// driver registry, workspace provisioning and the controller, and a single
// graceful shutdown that may be triggered by a signal, a fatal boot error or
// an explicit request.
//
// Boot phases run strictly in order. Before every phase after the first the
// shutdown flag is consulted; once set, the remaining phases are skipped.
// In-flight driver calls are never preempted: they run to completion and are
// then followed by a stop when shutdown was requested meanwhile.
package daemon
