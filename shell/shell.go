// Package shell implements the qsh interactive loop: the REPL, the
// executor, job control, and the 18 built-in commands, wired on top of the
// tokenizer/parser/store/profiler packages.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"qsh/logging"
	"qsh/parser"
	"qsh/profiler"
	"qsh/store"
)

// Options configures a Shell at construction.
type Options struct {
	// NoRC skips loading the history file at startup.
	NoRC bool
	// Debug records whether the caller enabled debug-level logging. The
	// caller configures logging itself; the shell does not read this field.
	Debug bool
}

// Shell is one qsh session: its variable/alias/history stores, job table,
// parser, profiler, and REPL state.
type Shell struct {
	vars    *store.Variables
	aliases *store.Aliases
	history *store.History
	jobs    *JobTable
	parser  *parser.Parser

	profiler *profiler.Profiler
	terminal *terminal

	cwd     string
	prevCwd string
	home    string

	lastStatus int
	shouldExit bool
	exitStatus int

	pid  int
	ppid int

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	histPath string
	options  Options
}

// New constructs a Shell ready to Run or RunOne.
func New(opts Options) *Shell {
	sh := &Shell{
		vars:     store.NewVariables(),
		aliases:  store.NewAliases(),
		history:  store.NewHistory(),
		jobs:     NewJobTable(),
		profiler: profiler.NewDefault(),
		terminal: newTerminal(),
		pid:      os.Getpid(),
		ppid:     os.Getppid(),
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		errOut:   os.Stderr,
		options:  opts,
	}

	if cwd, err := os.Getwd(); err == nil {
		sh.cwd = cwd
	}
	sh.prevCwd = sh.cwd
	if home, err := os.UserHomeDir(); err == nil {
		sh.home = home
	}

	sh.parser = parser.New(sh, sh, sh, func() string { return sh.cwd }, func() string { return sh.home })

	if sh.home != "" {
		sh.histPath = filepath.Join(sh.home, ".qsh_history")
	}
	if !opts.NoRC && sh.histPath != "" {
		if err := sh.history.Load(sh.histPath); err != nil {
			logging.WithOperation(logging.Default(), "history.load").Error("load history", "error", err)
		}
	}

	return sh
}

// GetVar satisfies token.Env and parser.Vars.
func (sh *Shell) GetVar(name string) (string, bool) { return sh.vars.GetVar(name) }

// Set satisfies parser.Vars.
func (sh *Shell) Set(name, value string, exported bool) { sh.vars.Set(name, value, exported) }

// LastStatus satisfies token.Env, for "$?".
func (sh *Shell) LastStatus() int { return sh.lastStatus }

// Pid satisfies token.Env, for "$$".
func (sh *Shell) Pid() int { return sh.pid }

// Ppid satisfies token.Env, for "$!" (qsh resolves it to the shell's parent
// pid rather than the conventional last-background-pid).
func (sh *Shell) Ppid() int { return sh.ppid }

// HistoryLast satisfies token.Env, for "!!".
func (sh *Shell) HistoryLast() (string, bool) { return sh.history.HistoryLast() }

// HistoryAt satisfies token.Env, for "!N".
func (sh *Shell) HistoryAt(n int) (string, bool) { return sh.history.HistoryAt(n) }

func (sh *Shell) prompt() string {
	return fmt.Sprintf("qsh:%s$ ", sh.cwd)
}

func (sh *Shell) printErr(err error) {
	fmt.Fprintln(sh.errOut, "qsh:", err)
}

func (sh *Shell) printf(format string, args ...any) {
	fmt.Fprintf(sh.out, format, args...)
}

// readRawLine reads one line of raw input (no alias/history processing),
// used for here-document bodies. ok is false on EOF.
func (sh *Shell) readRawLine(prompt string) (string, bool) {
	if sh.terminal.isTTY {
		fmt.Fprint(sh.out, prompt)
	}
	line, err := sh.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return trimNewline(line), true
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// Run drives the interactive REPL until exit or EOF, returning the final
// exit status.
func (sh *Shell) Run(ctx context.Context) int {
	sh.installSignalHandling()
	defer sh.saveHistory()

	for !sh.shouldExit {
		select {
		case <-ctx.Done():
			return sh.lastStatus
		default:
		}

		line, ok := sh.readRawLine(sh.prompt())
		if !ok {
			break
		}
		sh.execLine(line)
		sh.announceDoneJobs(sh.out)
	}

	if sh.shouldExit {
		return sh.exitStatus
	}
	return sh.lastStatus
}

// RunOne executes a single line (the -c flag) and returns its exit status.
func (sh *Shell) RunOne(ctx context.Context, command string) int {
	sh.execLine(command)
	if sh.shouldExit {
		return sh.exitStatus
	}
	return sh.lastStatus
}

// execLine expands aliases, records history, parses, and runs one line.
func (sh *Shell) execLine(line string) {
	expanded := sh.aliases.Expand(line)

	chain, err := sh.parser.Parse(expanded)
	if err != nil {
		sh.printErr(err)
		sh.lastStatus = 1
		sh.history.Add(line, sh.lastStatus, time.Now().Unix())
		return
	}
	if chain == nil {
		return
	}

	sh.runChain(chain)
	sh.history.Add(line, sh.lastStatus, time.Now().Unix())
}

func (sh *Shell) saveHistory() {
	if sh.histPath == "" {
		return
	}
	if err := sh.history.Save(sh.histPath); err != nil {
		sh.printErr(err)
	}
}
