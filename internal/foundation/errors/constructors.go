package errors

import "fmt"

// DiscoveryError reports that the driver directory itself could not be listed.
func DiscoveryError(dir string, cause error) *ClassifiedError {
	return WrapError(cause, CategoryDiscovery, "driver directory unlistable").
		Fatal().
		WithContext("path", dir).
		Build()
}

// IdentityReadError reports an unreadable or unparseable daemon identity file.
func IdentityReadError(path string, cause error) *ClassifiedError {
	return WrapError(cause, CategoryIdentity, "daemon identity unreadable").
		Fatal().
		WithContext("path", path).
		Build()
}

// MetadataParseError reports a driver candidate that was skipped.
func MetadataParseError(dir string, cause error) *ClassifiedError {
	return WrapError(cause, CategoryMetadata, "driver metadata invalid").
		Warning().
		WithContext("path", dir).
		Build()
}

// DriverStartError reports a driver whose Start failed.
func DriverStartError(name string, cause error) *ClassifiedError {
	return WrapError(cause, CategoryDriver, "driver start failed").
		WithContext("driver", name).
		Build()
}

// DriverStopError reports a driver whose Stop failed.
func DriverStopError(name string, cause error) *ClassifiedError {
	return WrapError(cause, CategoryDriver, "driver stop failed").
		WithContext("driver", name).
		Build()
}

// WorkspaceLoadError reports a workspace the controller refused.
func WorkspaceLoadError(path string, cause error) *ClassifiedError {
	return WrapError(cause, CategoryWorkspace, "workspace load failed").
		WithContext("path", path).
		Build()
}

// ProvisionError reports a workspace directory that could not be created.
func ProvisionError(path string, cause error) *ClassifiedError {
	return WrapError(cause, CategoryFileSystem, "workspace provisioning failed").
		Warning().
		WithContext("path", path).
		Build()
}

// UncaughtFault wraps a recovered panic value.
func UncaughtFault(origin string, recovered any) *ClassifiedError {
	cause, ok := recovered.(error)
	if !ok {
		cause = fmt.Errorf("%v", recovered)
	}
	return WrapError(cause, CategoryRuntime, "unmanaged fault").
		WithContext("origin", origin).
		Build()
}
