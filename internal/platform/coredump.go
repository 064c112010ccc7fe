//go:build linux || darwin

// Package platform isolates the OS hardening the daemon applies at
// startup.
package platform

import "golang.org/x/sys/unix"

// DisableCoreDumps sets RLIMIT_CORE to zero so a crash cannot spill
// session keys into a core file. Best effort: the daemon runs either
// way and logs the refusal.
func DisableCoreDumps() error {
	rlim := unix.Rlimit{Cur: 0, Max: 0}
	return unix.Setrlimit(unix.RLIMIT_CORE, &rlim)
}
