// Package workspace provisions the workspace root and enumerates the workspace
// units under it. Each immediate subdirectory of the root is one workspace.
//
// The root is created when missing and is never deleted by this package.
package workspace
