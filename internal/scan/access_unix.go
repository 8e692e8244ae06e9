//go:build unix

package scan

import "golang.org/x/sys/unix"

// readable reports whether the process may list and traverse dir.
func readable(dir string) bool {
	return unix.Access(dir, unix.R_OK|unix.X_OK) == nil
}
