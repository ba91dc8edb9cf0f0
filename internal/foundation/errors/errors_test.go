package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "driverd.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid configuration" {
			t.Errorf("expected message 'invalid configuration', got %s", err.Message())
		}

		file, exists := err.Context().GetString("file")
		if !exists || file != "driverd.yaml" {
			t.Errorf("expected context file=driverd.yaml, got %v", file)
		}
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("boot: %w", DiscoveryError("/opt/drivers", errors.New("permission denied")))

		if !IsClassified(err) {
			t.Error("expected error to be classified")
		}
		if !HasCategory(err, CategoryDiscovery) {
			t.Error("expected error to have discovery category")
		}
		if !IsFatal(err) {
			t.Error("expected discovery error to be fatal")
		}
	})

	t.Run("WithContext does not mutate the receiver", func(t *testing.T) {
		base := DriverStartError("alpha", nil)
		derived := base.WithContext("attempt", 1)

		if _, ok := base.Context().Get("attempt"); ok {
			t.Error("expected base context to be unchanged")
		}
		if v, ok := derived.Context().Get("attempt"); !ok || v != 1 {
			t.Errorf("expected derived attempt=1, got %v", v)
		}
	})
}

func TestKindSeverities(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		name     string
		err      *ClassifiedError
		category ErrorCategory
		fatal    bool
	}{
		{"discovery", DiscoveryError("/d", cause), CategoryDiscovery, true},
		{"identity", IdentityReadError("/i", cause), CategoryIdentity, true},
		{"metadata", MetadataParseError("/d/a", cause), CategoryMetadata, false},
		{"driver start", DriverStartError("a", cause), CategoryDriver, false},
		{"driver stop", DriverStopError("a", cause), CategoryDriver, false},
		{"workspace load", WorkspaceLoadError("/w/a", cause), CategoryWorkspace, false},
		{"provision", ProvisionError("/w", cause), CategoryFileSystem, false},
		{"fault", UncaughtFault("driver", "nil map"), CategoryRuntime, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Category() != tt.category {
				t.Errorf("category = %s, want %s", tt.err.Category(), tt.category)
			}
			if tt.err.IsFatal() != tt.fatal {
				t.Errorf("IsFatal() = %v, want %v", tt.err.IsFatal(), tt.fatal)
			}
		})
	}
}

func TestUncaughtFaultWrapsErrorValues(t *testing.T) {
	panicErr := errors.New("index out of range")
	err := UncaughtFault("workspace-load", panicErr)

	if !errors.Is(err, panicErr) {
		t.Error("expected recovered error to be preserved as cause")
	}
	if origin, _ := err.Context().GetString("origin"); origin != "workspace-load" {
		t.Errorf("origin = %q", origin)
	}
}
