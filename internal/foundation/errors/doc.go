// Package errors provides the classified error type used across driverd.
//
// Every failure the daemon reports is a ClassifiedError carrying a category
// (which subsystem failed), a severity (whether boot can continue) and
// structured context that is emitted as log attributes.
//
//	err := errors.DiscoveryError(dir, cause)
//	if errors.IsFatal(err) {
//		// abort the boot sequence
//	}
//
// The constructors in constructors.go correspond one-to-one to the error
// kinds the daemon distinguishes; only DiscoveryError and IdentityReadError
// are fatal.
package errors
