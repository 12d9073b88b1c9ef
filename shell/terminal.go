package shell

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// terminal owns the controlling tty's process-group handoff and raw/cooked
// mode, mirroring the attach/detach discipline the profiler uses for
// ptrace: every entry into raw or background-foreground mode has a matching
// exit, even on an error path.
type terminal struct {
	fd        int
	isTTY     bool
	shellPgid int
}

func newTerminal() *terminal {
	fd := int(os.Stdin.Fd())
	t := &terminal{fd: fd, isTTY: term.IsTerminal(fd)}
	if t.isTTY {
		t.shellPgid, _ = unix.Getpgid(os.Getpid())
	}
	return t
}

// foreground hands the controlling terminal to pgid via TIOCSPGRP. The
// shell must have SIGTTOU ignored (see signals.go) before calling this, or
// it stops itself the moment it isn't already the foreground group.
func (t *terminal) foreground(pgid int) {
	if !t.isTTY {
		return
	}
	_ = unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid)
}

// reclaim returns terminal control to the shell's own process group, called
// after a foreground job exits or stops.
func (t *terminal) reclaim() {
	t.foreground(t.shellPgid)
}

// rawMode switches the tty into raw mode for the duration of fn, always
// restoring cooked mode afterward regardless of how fn returns.
func (t *terminal) rawMode(fn func()) error {
	if !t.isTTY {
		fn()
		return nil
	}
	state, err := term.MakeRaw(t.fd)
	if err != nil {
		fn()
		return err
	}
	defer term.Restore(t.fd, state)
	fn()
	return nil
}
