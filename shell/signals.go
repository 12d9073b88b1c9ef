package shell

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// installSignalHandling ignores the signals an interactive job-control
// shell must never act on directly (SIGTTIN/SIGTTOU, and SIGINT/SIGQUIT/
// SIGTSTP which belong to whichever job currently owns the terminal), then
// starts the goroutine that drains SIGCHLD and reports job completions.
func (sh *Shell) installSignalHandling() {
	signal.Ignore(unix.SIGTTIN, unix.SIGTTOU, unix.SIGINT, unix.SIGQUIT, unix.SIGTSTP)

	ch := make(chan os.Signal, 8)
	signal.Notify(ch, unix.SIGCHLD)
	go sh.reapLoop(ch)
}

// reapLoop drains every terminated or stopped child on each SIGCHLD and
// announces background jobs that have finished since the last prompt.
func (sh *Shell) reapLoop(ch <-chan os.Signal) {
	for range ch {
		for {
			pid, _, err := sh.jobs.Wait4(-1, unix.WNOHANG|unix.WUNTRACED)
			if err != nil || pid <= 0 {
				break
			}
		}
		sh.announceDoneJobs(os.Stdout)
	}
}

func (sh *Shell) announceDoneJobs(w io.Writer) {
	for _, j := range sh.jobs.DoneJobs() {
		fmt.Fprintf(w, "[%d]+  Done\t%s\n", j.ID, j.Cmd)
	}
}
