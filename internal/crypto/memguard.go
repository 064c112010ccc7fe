//go:build linux || darwin

package crypto

import "golang.org/x/sys/unix"

// LockBuffer pins b's pages so key material cannot be swapped to disk.
// Best effort: callers ignore the error when the rlimit is exhausted.
func LockBuffer(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Mlock(b)
}

// UnlockBuffer releases pages pinned by LockBuffer. Call before zeroing.
func UnlockBuffer(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munlock(b)
}
