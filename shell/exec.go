package shell

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"qsh/ast"
	qerrors "qsh/errors"
)

// stagePid remembers which pipeline stage a spawned pid belongs to, so the
// foreground wait loop can write each external stage's real exit status back
// into the right results slot instead of leaving it at the zero value.
type stagePid struct {
	idx int
	pid int
}

// runChain walks a parsed command chain, splitting it into pipelines at
// Pipe boundaries and deciding whether to run the next pipeline based on
// the And/Or/None/Background operator that ended the previous one. It
// returns the exit status of the last pipeline actually run.
func (sh *Shell) runChain(chain *ast.Node) int {
	status := sh.lastStatus
	node := chain

	for node != nil {
		stages, rest, boundary := collectPipeline(node)
		background := boundary == ast.Background

		text := pipelineText(stages)
		status = sh.runPipeline(stages, background, text, nil)
		sh.lastStatus = status

		switch boundary {
		case ast.And:
			if status != 0 {
				return status
			}
		case ast.Or:
			if status == 0 {
				return status
			}
		}
		node = rest
	}

	return status
}

// collectPipeline gathers the run of nodes joined by Pipe starting at n,
// returning the stages, the node following the pipeline (or nil), and the
// operator that ended it (the last stage's Op).
func collectPipeline(n *ast.Node) (stages []*ast.Node, rest *ast.Node, boundary ast.Op) {
	for {
		stages = append(stages, n)
		if n.Op != ast.Pipe {
			return stages, n.Next, n.Op
		}
		n = n.Next
	}
}

// runPipeline executes one or more stages connected by pipes. External
// stages are spawned as real child processes sharing a process group, so
// job control (fg/bg, terminal handoff, SIGTSTP) works the way it would in
// a process-per-stage Unix pipeline. Internal (in-process) stages run on
// goroutines reading/writing the same fds; they never join the process
// group, a deliberate simplification for commands like `cd` or `export`
// that rarely appear mid-pipeline.
func (sh *Shell) runPipeline(stages []*ast.Node, background bool, text string, finalOut *os.File) int {
	n := len(stages)
	ins := make([]*os.File, n)
	outs := make([]*os.File, n)
	ins[0] = os.Stdin
	if finalOut != nil {
		outs[n-1] = finalOut
	} else {
		outs[n-1] = os.Stdout
	}

	var pipeFiles []*os.File
	for i := 0; i < n-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			sh.printErr(err)
			return 1
		}
		outs[i] = w
		ins[i+1] = r
		pipeFiles = append(pipeFiles, r, w)
	}

	results := make([]int, n)
	var pids []int
	var stagePids []stagePid
	var wg sync.WaitGroup
	pgid := 0

	for i, node := range stages {
		i, node := i, node
		stdin, stdout := ins[i], outs[i]

		rin, rout, rerr, cleanup, err := sh.openRedirections(node, stdin, stdout, os.Stderr)
		if err != nil {
			sh.printErr(err)
			results[i] = 1
			if i < n-1 {
				outs[i].Close()
			}
			continue
		}

		if isInternal(node.Cmd) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer cleanup()
				if i < n-1 {
					defer outs[i].Close()
				}
				if i > 0 {
					defer stdin.Close()
				}
				results[i] = sh.runInternal(node, rin, rout, rerr)
			}()
			continue
		}

		cmd, err := sh.buildExternalCmd(node, rin, rout, rerr, pgid)
		if err != nil {
			if qerrors.IsKind(err, qerrors.ErrExec) {
				fmt.Fprintf(os.Stderr, "%s: command not found\n", node.Argv[0])
			} else {
				sh.printErr(err)
			}
			results[i] = 127
			cleanup()
			if i < n-1 {
				outs[i].Close()
			}
			continue
		}

		if err := cmd.Start(); err != nil {
			sh.printErr(err)
			results[i] = 127
			cleanup()
			if i < n-1 {
				outs[i].Close()
			}
			continue
		}

		pid := cmd.Process.Pid
		if pgid == 0 {
			pgid = pid
		}
		pids = append(pids, pid)
		stagePids = append(stagePids, stagePid{idx: i, pid: pid})

		if i < n-1 {
			outs[i].Close()
		}
		if i > 0 {
			ins[i].Close()
		}
		cleanup()
	}

	for _, f := range pipeFiles {
		f.Close()
	}

	if background && pgid != 0 {
		job := sh.jobs.Add(pgid, pids, text)
		sh.printf("[%d] %d\n", job.ID, pgid)
		return 0
	}

	if pgid != 0 {
		sh.terminal.foreground(pgid)
		for _, sp := range stagePids {
			_, ws, err := sh.jobs.Wait4(sp.pid, 0)
			if err == nil {
				results[sp.idx] = exitCodeFromWaitStatus(ws)
			}
		}
		sh.terminal.reclaim()
	}

	wg.Wait()
	return results[n-1]
}

// buildExternalCmd resolves argv[0] on PATH and wires an exec.Cmd to join
// the pipeline's process group (or start a new one, for the first external
// stage).
func (sh *Shell) buildExternalCmd(node *ast.Node, stdin, stdout, stderr *os.File, pgid int) (*exec.Cmd, error) {
	if len(node.Argv) == 0 {
		return nil, qerrors.New(qerrors.ErrParse, "exec", "empty command")
	}
	path, err := exec.LookPath(node.Argv[0])
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrExec, node.Argv[0])
	}
	cmd := exec.Command(path, node.Argv[1:]...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = stdin, stdout, stderr
	cmd.Dir = sh.cwd
	cmd.Env = sh.environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
	return cmd, nil
}

// environ renders the shell's exported variable table as "NAME=VALUE".
func (sh *Shell) environ() []string {
	var out []string
	for _, v := range sh.vars.All() {
		if v.Exported {
			out = append(out, v.Name+"="+v.Value)
		}
	}
	return out
}

func pipelineText(stages []*ast.Node) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = joinArgv(s.Argv)
	}
	return joinPipeline(parts)
}
