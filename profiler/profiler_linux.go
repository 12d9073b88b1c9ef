//go:build linux

package profiler

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// NewDefault returns a Profiler wired to the real ptrace attach/detach loop.
func NewDefault() *Profiler {
	return New(ptraceAttach, ptraceDetach)
}

// ptraceAttach implements the mechanism: PTRACE_ATTACH, wait for the
// attach-stop, PTRACE_SETOPTIONS(TRACESYSGOOD), then hand off to a
// background goroutine that drives PTRACE_SYSCALL and records timings.
// Every failure path after a successful attach detaches before returning,
// so no stopped tracee is ever left behind.
func ptraceAttach(pid int, p *Profiler) error {
	if err := unix.PtraceAttach(pid); err != nil {
		return fmt.Errorf("ptrace attach: %w", err)
	}

	var ws unix.WaitStatus
	if _, err := unix.Wait4(pid, &ws, 0, nil); err != nil {
		unix.PtraceDetach(pid)
		return fmt.Errorf("wait4 after attach: %w", err)
	}

	if err := unix.PtraceSetOptions(pid, unix.PTRACE_O_TRACESYSGOOD); err != nil {
		unix.PtraceDetach(pid)
		return fmt.Errorf("ptrace setoptions: %w", err)
	}

	go ptraceLoop(pid, p)
	return nil
}

func ptraceDetach(pid int) error {
	return unix.PtraceDetach(pid)
}

// syscallStopSignal is SIGTRAP|0x80, the stop signal TRACESYSGOOD arranges
// for syscall-entry and syscall-exit stops (disambiguating them from a
// genuine SIGTRAP delivery).
const syscallStopSignal = int(unix.SIGTRAP) | 0x80

// ptraceLoop alternates PTRACE_SYSCALL resumes with wait4, pairing each
// syscall-entry stop with its matching exit stop to time one call.
func ptraceLoop(pid int, p *Profiler) {
	entered := false
	var entryNr int
	var entryAt time.Time

	for {
		if err := unix.PtraceSyscall(pid, 0); err != nil {
			return
		}

		var ws unix.WaitStatus
		if _, err := unix.Wait4(pid, &ws, 0, nil); err != nil {
			return
		}
		if ws.Exited() || ws.Signaled() {
			return
		}
		if !ws.Stopped() {
			continue
		}
		if int(ws.StopSignal()) != syscallStopSignal {
			continue
		}

		var regs unix.PtraceRegs
		if err := unix.PtraceGetRegs(pid, &regs); err != nil {
			return
		}
		nr := int(regs.Orig_rax)

		if !entered {
			entered = true
			entryNr = nr
			entryAt = time.Now()
			continue
		}

		p.record(entryNr, time.Since(entryAt))
		entered = false
	}
}
