package shell

import (
	"sort"
	"sync"

	"golang.org/x/sys/unix"

	qerrors "qsh/errors"
)

// Job tracks one background or pipelined command: every member pid, the
// shared process group, and the status last observed for the group.
type Job struct {
	ID      int
	Pgid    int
	Pids    []int
	Cmd     string
	Running bool
	Stopped bool
	Status  int

	exited map[int]bool
}

// allExited reports whether every member pid has been reaped.
func (j *Job) allExited() bool {
	for _, pid := range j.Pids {
		if !j.exited[pid] {
			return false
		}
	}
	return true
}

// JobTable is the shell's job control state: every wait on a child, whether
// driven by the foreground executor or the SIGCHLD-draining goroutine,
// funnels through Wait4 so the two consumers never race over the same pid.
type JobTable struct {
	mu     sync.Mutex
	jobs   map[int]*Job
	nextID int
}

// NewJobTable returns an empty job table.
func NewJobTable() *JobTable {
	return &JobTable{jobs: make(map[int]*Job), nextID: 1}
}

// Add registers a new job for the given process group and member pids.
func (t *JobTable) Add(pgid int, pids []int, cmdText string) *Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	j := &Job{
		ID:      t.nextID,
		Pgid:    pgid,
		Pids:    append([]int(nil), pids...),
		Cmd:     cmdText,
		Running: true,
		exited:  make(map[int]bool),
	}
	t.jobs[j.ID] = j
	t.nextID++
	return j
}

// Get returns the job with the given id.
func (t *JobTable) Get(id int) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	return j, ok
}

// ByPgid finds the job owning pgid.
func (t *JobTable) ByPgid(pgid int) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, j := range t.jobs {
		if j.Pgid == pgid {
			return j, true
		}
	}
	return nil, false
}

// Remove deletes a job from the table (used by fg/wait once reaped).
func (t *JobTable) Remove(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, id)
}

// List returns every job, sorted by id.
func (t *JobTable) List() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// Wait4 wraps unix.Wait4, updating the owning job's state under the table's
// lock before returning. Foreground waits and the SIGCHLD-draining
// goroutine both call this rather than raw wait4, so only one path ever
// observes a given status transition.
func (t *JobTable) Wait4(pid, flags int) (int, unix.WaitStatus, error) {
	var ws unix.WaitStatus
	wpid, err := unix.Wait4(pid, &ws, flags, nil)
	if err != nil || wpid <= 0 {
		return wpid, ws, err
	}

	t.mu.Lock()
	t.updateLocked(wpid, ws)
	t.mu.Unlock()

	return wpid, ws, nil
}

func (t *JobTable) updateLocked(pid int, ws unix.WaitStatus) {
	for _, j := range t.jobs {
		found := false
		for _, p := range j.Pids {
			if p == pid {
				found = true
				break
			}
		}
		if !found {
			continue
		}

		switch {
		case ws.Exited(), ws.Signaled():
			j.exited[pid] = true
			j.Status = exitCodeFromWaitStatus(ws)
		case ws.Stopped():
			j.Stopped = true
			j.Running = false
			return
		}

		j.Running = !j.allExited() && !j.Stopped
		return
	}
}

// exitCodeFromWaitStatus converts a reaped WaitStatus into the same status
// value $? and job-table entries use: the exit code on a normal exit, or
// 128+signal on termination by signal.
func exitCodeFromWaitStatus(ws unix.WaitStatus) int {
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return 128 + int(ws.Signal())
	default:
		return 0
	}
}

// DoneJobs returns (and removes) every job all of whose members have
// exited, for the "[id] Done\tcmd" notification.
func (t *JobTable) DoneJobs() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	var done []*Job
	for id, j := range t.jobs {
		if j.allExited() {
			done = append(done, j)
			delete(t.jobs, id)
		}
	}
	sort.Slice(done, func(i, k int) bool { return done[i].ID < done[k].ID })
	return done
}

// Continue sends SIGCONT to a job's process group and marks it running.
func (t *JobTable) Continue(j *Job) error {
	if err := unix.Kill(-j.Pgid, unix.SIGCONT); err != nil {
		return qerrors.Wrap(err, qerrors.ErrJob, "bg")
	}
	t.mu.Lock()
	j.Running = true
	j.Stopped = false
	t.mu.Unlock()
	return nil
}
