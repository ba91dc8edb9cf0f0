package drivertest

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteDriver creates root/dirName/driver.yaml with body and returns the driver directory.
func WriteDriver(tb testing.TB, root, dirName, body string) string {
	tb.Helper()
	dir := filepath.Join(root, dirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		tb.Fatalf("create driver dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "driver.yaml"), []byte(body), 0o600); err != nil {
		tb.Fatalf("write driver metadata: %v", err)
	}
	return dir
}
