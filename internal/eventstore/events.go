package eventstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event type names.
const (
	TypeDaemonStarted     = "DaemonStarted"
	TypePhaseCompleted    = "PhaseCompleted"
	TypeDriverRegistered  = "DriverRegistered"
	TypeDriverLifecycle   = "DriverLifecycle"
	TypeWorkspaceLoaded   = "WorkspaceLoaded"
	TypeShutdownCompleted = "ShutdownCompleted"
)

// DaemonStartedData describes the daemon that started a run.
type DaemonStartedData struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	PID     int    `json:"pid"`
}

// PhaseCompletedData records one boot phase.
type PhaseCompletedData struct {
	Phase      string `json:"phase"`
	Result     string `json:"result"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// DriverRegisteredData records a registry decision.
type DriverRegisteredData struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Outcome string `json:"outcome"`
}

// DriverLifecycleData records one start or stop call.
type DriverLifecycleData struct {
	Name  string `json:"name"`
	Op    string `json:"op"`
	Error string `json:"error,omitempty"`
}

// WorkspaceLoadedData records one workspace handoff.
type WorkspaceLoadedData struct {
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}

// ShutdownCompletedData records the end of a run.
type ShutdownCompletedData struct {
	Reason     string `json:"reason"`
	DurationMS int64  `json:"duration_ms"`
}

// NewEvent builds an event of eventType with data marshaled as its payload.
func NewEvent(runID, eventType string, data any) (*BaseEvent, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	}, nil
}

// Decode unmarshals an event payload into out.
func Decode(e Event, out any) error {
	if err := json.Unmarshal(e.Payload(), out); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", e.Type(), err)
	}
	return nil
}
