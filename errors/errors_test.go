package errors

import (
	"fmt"
	"testing"

	stderrors "errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{ErrLex, "lex error"},
		{ErrParse, "parse error"},
		{ErrRedir, "redirection error"},
		{ErrExec, "exec error"},
		{ErrJob, "job error"},
		{ErrProfiler, "profiler error"},
		{ErrIO, "io error"},
		{ErrorKind(999), "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestShellError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ShellError
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "<nil>",
		},
		{
			name: "full error",
			err: &ShellError{
				Op:     "open",
				Kind:   ErrRedir,
				Detail: "output.txt not found",
				Err:    fmt.Errorf("permission denied"),
			},
			expected: "open: output.txt not found: permission denied",
		},
		{
			name: "without op",
			err: &ShellError{
				Kind:   ErrParse,
				Detail: "missing redirection target",
			},
			expected: "missing redirection target",
		},
		{
			name: "kind only",
			err: &ShellError{
				Kind: ErrJob,
			},
			expected: "job error",
		},
		{
			name: "with underlying error",
			err: &ShellError{
				Op:   "wait4",
				Kind: ErrJob,
				Err:  fmt.Errorf("no child processes"),
			},
			expected: "wait4: job error: no child processes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestShellError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("underlying error")
	err := &ShellError{Op: "test", Kind: ErrIO, Err: underlying}

	assert.Equal(t, underlying, err.Unwrap())

	var nilErr *ShellError
	assert.Nil(t, nilErr.Unwrap())
}

func TestShellError_Is(t *testing.T) {
	err1 := &ShellError{Kind: ErrJob, Op: "jobs"}
	err2 := &ShellError{Kind: ErrJob, Op: "fg"}
	err3 := &ShellError{Kind: ErrExec, Op: "run"}

	assert.True(t, err1.Is(err2), "same kind should match")
	assert.False(t, err1.Is(err3), "different kind should not match")
	assert.False(t, err1.Is(fmt.Errorf("some error")), "non-ShellError should not match")

	var nilErr *ShellError
	assert.True(t, nilErr.Is(nil))
}

func TestNew(t *testing.T) {
	err := New(ErrParse, "validate", "too many arguments")

	assert.Equal(t, ErrParse, err.Kind)
	assert.Equal(t, "validate", err.Op)
	assert.Equal(t, "too many arguments", err.Detail)
}

func TestWrap(t *testing.T) {
	underlying := fmt.Errorf("no such file")
	err := Wrap(underlying, ErrRedir, "open target")

	assert.Equal(t, underlying, err.Err)
	assert.Equal(t, ErrRedir, err.Kind)
	assert.Equal(t, "open target", err.Op)
}

func TestWrapWithDetail(t *testing.T) {
	underlying := fmt.Errorf("ptrace failed")
	err := WrapWithDetail(underlying, ErrProfiler, "attach", "operation not permitted")

	assert.Equal(t, "operation not permitted", err.Detail)
}

func TestIsKind(t *testing.T) {
	err := &ShellError{Kind: ErrJob}
	wrapped := fmt.Errorf("wrapped: %w", err)

	assert.True(t, IsKind(err, ErrJob))
	assert.True(t, IsKind(wrapped, ErrJob))
	assert.False(t, IsKind(err, ErrExec))
	assert.False(t, IsKind(fmt.Errorf("plain error"), ErrJob))
}

func TestGetKind(t *testing.T) {
	err := &ShellError{Kind: ErrProfiler}
	wrapped := fmt.Errorf("wrapped: %w", err)

	kind, ok := GetKind(err)
	require.True(t, ok)
	assert.Equal(t, ErrProfiler, kind)

	kind, ok = GetKind(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrProfiler, kind)

	_, ok = GetKind(fmt.Errorf("plain error"))
	assert.False(t, ok)
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *ShellError
		kind ErrorKind
	}{
		{"ErrUnclosedQuote", ErrUnclosedQuote, ErrLex},
		{"ErrTruncatedSubst", ErrTruncatedSubst, ErrLex},
		{"ErrMissingTarget", ErrMissingTarget, ErrParse},
		{"ErrDanglingOperator", ErrDanglingOperator, ErrParse},
		{"ErrTooManyArgs", ErrTooManyArgs, ErrParse},
		{"ErrTooManyRedirs", ErrTooManyRedirs, ErrParse},
		{"ErrOpenTarget", ErrOpenTarget, ErrRedir},
		{"ErrCommandNotFound", ErrCommandNotFound, ErrExec},
		{"ErrJobNotFound", ErrJobNotFound, ErrJob},
		{"ErrNoSuchProcess", ErrNoSuchProcess, ErrJob},
		{"ErrAlreadyProfiling", ErrAlreadyProfiling, ErrProfiler},
		{"ErrNotProfiling", ErrNotProfiling, ErrProfiler},
		{"ErrSyscallFailed", ErrSyscallFailed, ErrProfiler},
		{"ErrInvalidArg", ErrInvalidArg, ErrProfiler},
		{"ErrHistorySave", ErrHistorySave, ErrIO},
		{"ErrHistoryLoad", ErrHistoryLoad, ErrIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)

			wrapped := Wrap(fmt.Errorf("underlying"), tt.kind, "test")
			assert.True(t, stderrors.Is(wrapped, tt.err))
		})
	}
}

func TestErrorChain(t *testing.T) {
	underlying := fmt.Errorf("file not found")
	err1 := Wrap(underlying, ErrJob, "jobs")
	err2 := fmt.Errorf("command failed: %w", err1)

	assert.True(t, stderrors.Is(err2, ErrJobNotFound))

	var serr *ShellError
	require.True(t, stderrors.As(err2, &serr))
	assert.Equal(t, "jobs", serr.Op)

	assert.Equal(t, underlying, stderrors.Unwrap(err1))
}
