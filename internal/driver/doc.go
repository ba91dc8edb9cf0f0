// Package driver discovers driver packages on disk, instantiates them through a
// factory catalog and keeps the active set, one entry per name, resolved by version.
//
// A driver package is a directory holding a metadata file (driver.yaml or
// driver.json) with at least a name and a version:
//
//	name: mailer
//	version: 1.4.0
//	type: process
//	command: ./bin/mailer
package driver
