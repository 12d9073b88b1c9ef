package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qsh/ast"
)

type fakeVars struct {
	values map[string]string
}

func newFakeVars() *fakeVars { return &fakeVars{values: map[string]string{}} }

func (f *fakeVars) GetVar(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

func (f *fakeVars) Set(name, value string, exported bool) {
	f.values[name] = value
}

type fakeEnv struct {
	vars *fakeVars
}

func (f *fakeEnv) GetVar(name string) (string, bool)  { return f.vars.GetVar(name) }
func (f *fakeEnv) LastStatus() int                    { return 0 }
func (f *fakeEnv) Pid() int                           { return 1 }
func (f *fakeEnv) Ppid() int                          { return 0 }
func (f *fakeEnv) HistoryLast() (string, bool)        { return "", false }
func (f *fakeEnv) HistoryAt(n int) (string, bool)     { return "", false }

type fakeRunner struct {
	output string
	status int
}

func (f *fakeRunner) Capture(chain *ast.Node) (string, int, error) {
	return f.output, f.status, nil
}

func newParser(vars *fakeVars) *Parser {
	env := &fakeEnv{vars: vars}
	return New(env, vars, &fakeRunner{output: "captured"}, func() string { return "." }, func() string { return "/home/u" })
}

func TestParse_EmptyLine(t *testing.T) {
	p := newParser(newFakeVars())
	chain, err := p.Parse("")
	require.NoError(t, err)
	assert.Nil(t, chain)
}

func TestParse_CommentOnlyLine(t *testing.T) {
	p := newParser(newFakeVars())
	chain, err := p.Parse("   # just a comment")
	require.NoError(t, err)
	assert.Nil(t, chain)
}

func TestParse_PureAssignmentReturnsNoChain(t *testing.T) {
	vars := newFakeVars()
	p := newParser(vars)
	chain, err := p.Parse("X=42")
	require.NoError(t, err)
	assert.Nil(t, chain)
	v, _ := vars.GetVar("X")
	assert.Equal(t, "42", v)
}

func TestParse_SimpleCommand(t *testing.T) {
	p := newParser(newFakeVars())
	chain, err := p.Parse("echo hello world")
	require.NoError(t, err)
	require.NotNil(t, chain)
	assert.Equal(t, "echo", chain.Cmd)
	assert.Equal(t, []string{"echo", "hello", "world"}, chain.Argv)
	assert.Nil(t, chain.Next)
}

func TestParse_Pipeline(t *testing.T) {
	p := newParser(newFakeVars())
	chain, err := p.Parse("echo hi | grep h | wc -l")
	require.NoError(t, err)
	require.NotNil(t, chain)
	assert.Equal(t, 3, chain.Len())
	assert.Equal(t, ast.Pipe, chain.Op)
	assert.Equal(t, ast.Pipe, chain.Next.Op)
	assert.Equal(t, ast.None, chain.Next.Next.Op)
}

func TestParse_TrailingPipeIsError(t *testing.T) {
	p := newParser(newFakeVars())
	_, err := p.Parse("echo hi |")
	assert.Error(t, err)
}

func TestParse_TrailingAndIsError(t *testing.T) {
	p := newParser(newFakeVars())
	_, err := p.Parse("true &&")
	assert.Error(t, err)
}

func TestParse_RedirectionWithoutTargetIsError(t *testing.T) {
	p := newParser(newFakeVars())
	_, err := p.Parse("echo hi >")
	assert.Error(t, err)
}

func TestParse_RedirectionOverflow(t *testing.T) {
	p := newParser(newFakeVars())
	_, err := p.Parse("cmd < a > b 2> c &> d < e")
	assert.Error(t, err)
}

func TestParse_ArgOverflow(t *testing.T) {
	line := "cmd"
	for i := 0; i < ast.MaxArgs; i++ {
		line += " x"
	}
	p := newParser(newFakeVars())
	_, err := p.Parse(line)
	assert.Error(t, err)
}

func TestParse_Redirections(t *testing.T) {
	p := newParser(newFakeVars())
	chain, err := p.Parse("cmd < in.txt > out.txt 2>> err.txt")
	require.NoError(t, err)
	require.Len(t, chain.Redirs, 3)
	assert.Equal(t, ast.Redirection{Kind: ast.InFile, Target: "in.txt"}, chain.Redirs[0])
	assert.Equal(t, ast.Redirection{Kind: ast.OutFile, Target: "out.txt"}, chain.Redirs[1])
	assert.Equal(t, ast.Redirection{Kind: ast.ErrAppendFile, Target: "err.txt"}, chain.Redirs[2])
}

func TestParse_ErrToOutHasNoTarget(t *testing.T) {
	p := newParser(newFakeVars())
	chain, err := p.Parse("cmd 2>&1")
	require.NoError(t, err)
	require.Len(t, chain.Redirs, 1)
	assert.Equal(t, ast.Redirection{Kind: ast.ErrToOut}, chain.Redirs[0])
}

func TestParse_CommandSubstitutionConcatenatesAsOneArg(t *testing.T) {
	// Resolved open question: command substitution output is not
	// field-split; it becomes exactly one argv entry.
	vars := newFakeVars()
	env := &fakeEnv{vars: vars}
	p := New(env, vars, &fakeRunner{output: "a b c\n"}, func() string { return "." }, func() string { return "" })

	chain, err := p.Parse("echo $(whatever)")
	require.NoError(t, err)
	require.Len(t, chain.Argv, 2)
	assert.Equal(t, "a b c", chain.Argv[1])
}

func TestParse_TildeExpansion(t *testing.T) {
	p := newParser(newFakeVars())
	chain, err := p.Parse("ls ~/x")
	require.NoError(t, err)
	assert.Equal(t, "/home/u/x", chain.Argv[1])
}

func TestParse_BackgroundOperator(t *testing.T) {
	p := newParser(newFakeVars())
	chain, err := p.Parse("sleep 1 &")
	require.NoError(t, err)
	require.NotNil(t, chain)
	assert.Equal(t, ast.Background, chain.Op)
	assert.Nil(t, chain.Next)
}

func TestParse_AndOr(t *testing.T) {
	p := newParser(newFakeVars())
	chain, err := p.Parse("true && echo ok")
	require.NoError(t, err)
	assert.Equal(t, ast.And, chain.Op)
	assert.Equal(t, "echo", chain.Next.Cmd)
}
