//go:build !linux

package profiler

import qerrors "qsh/errors"

// syscallName has no name table off Linux; every entry falls back to a
// numeric placeholder.
func syscallName(nr int) string {
	return numericSyscallName(nr)
}

// NewDefault returns a Profiler whose Start always fails with
// ErrSyscallFailed, per the "profiling not supported" contract off Linux.
func NewDefault() *Profiler {
	return New(
		func(pid int, p *Profiler) error {
			return qerrors.ErrSyscallFailed
		},
		func(pid int) error { return nil },
	)
}
