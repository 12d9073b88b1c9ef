// Package errors provides predefined sentinel errors for common failure cases.
package errors

// Lexer and parser errors.
var (
	// ErrUnclosedQuote indicates a quote was never closed on the line.
	ErrUnclosedQuote = &ShellError{Kind: ErrLex, Detail: "unclosed quote"}

	// ErrTruncatedSubst indicates a $(...) or `...` was never closed.
	ErrTruncatedSubst = &ShellError{Kind: ErrLex, Detail: "truncated substitution"}

	// ErrMissingTarget indicates a redirection operator had no following token.
	ErrMissingTarget = &ShellError{Kind: ErrParse, Detail: "missing redirection target"}

	// ErrDanglingOperator indicates a chain operator with no following command.
	ErrDanglingOperator = &ShellError{Kind: ErrParse, Detail: "operator with no right-hand side"}

	// ErrTooManyArgs indicates argv exceeded MaxArgs.
	ErrTooManyArgs = &ShellError{Kind: ErrParse, Detail: "too many arguments"}

	// ErrTooManyRedirs indicates redirections exceeded MaxRedirections.
	ErrTooManyRedirs = &ShellError{Kind: ErrParse, Detail: "too many redirections"}
)

// Redirection and execution errors.
var (
	// ErrOpenTarget indicates a redirection target could not be opened.
	ErrOpenTarget = &ShellError{Kind: ErrRedir, Detail: "cannot open"}

	// ErrCommandNotFound indicates execvp failed with ENOENT.
	ErrCommandNotFound = &ShellError{Kind: ErrExec, Detail: "command not found"}
)

// Job errors.
var (
	// ErrJobNotFound indicates an unknown job spec.
	ErrJobNotFound = &ShellError{Kind: ErrJob, Detail: "job not found"}

	// ErrNoSuchProcess indicates a pid target did not resolve to a process.
	ErrNoSuchProcess = &ShellError{Kind: ErrJob, Detail: "no such process"}
)

// Profiler errors.
var (
	// ErrAlreadyProfiling indicates start was called while already attached.
	ErrAlreadyProfiling = &ShellError{Kind: ErrProfiler, Detail: "already profiling"}

	// ErrNotProfiling indicates stop/report was called while idle.
	ErrNotProfiling = &ShellError{Kind: ErrProfiler, Detail: "not profiling"}

	// ErrSyscallFailed indicates a ptrace syscall failed, or the platform
	// does not support profiling.
	ErrSyscallFailed = &ShellError{Kind: ErrProfiler, Detail: "profiling not supported"}

	// ErrInvalidArg indicates a malformed profiler argument.
	ErrInvalidArg = &ShellError{Kind: ErrProfiler, Detail: "invalid argument"}
)

// Persistence errors.
var (
	// ErrHistorySave indicates the history file could not be written.
	ErrHistorySave = &ShellError{Kind: ErrIO, Detail: "failed to save history"}

	// ErrHistoryLoad indicates the history file could not be read.
	ErrHistoryLoad = &ShellError{Kind: ErrIO, Detail: "failed to load history"}
)
