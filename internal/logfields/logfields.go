package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPhase      = "phase"
	KeyDriver     = "driver"
	KeyVersion    = "version"
	KeyDriverType = "driver_type"
	KeyWorkspace  = "workspace"
	KeyPath       = "path"
	KeyReason     = "reason"
	KeySignal     = "signal"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyName       = "name"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Phase(name string) slog.Attr      { return slog.String(KeyPhase, name) }
func Driver(name string) slog.Attr     { return slog.String(KeyDriver, name) }
func Version(v string) slog.Attr       { return slog.String(KeyVersion, v) }
func DriverType(t string) slog.Attr    { return slog.String(KeyDriverType, t) }
func Workspace(path string) slog.Attr  { return slog.String(KeyWorkspace, path) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Reason(r string) slog.Attr        { return slog.String(KeyReason, r) }
func Signal(s string) slog.Attr        { return slog.String(KeySignal, s) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Name(n string) slog.Attr          { return slog.String(KeyName, n) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
