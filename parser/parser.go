// Package parser consumes a token stream and builds the command-chain AST:
// assignment-prefix lifting, argument/redirection accumulation, tilde and
// glob expansion, and recursive command-substitution capture.
package parser

import (
	"fmt"
	"strings"

	"qsh/ast"
	qerrors "qsh/errors"
	"qsh/token"
)

// Vars is the subset of the variable store the parser is handed: Set
// receives NAME=VALUE prefixes. The parser itself never calls GetVar; tilde
// expansion uses Home and glob expansion uses Cwd.
type Vars interface {
	GetVar(name string) (string, bool)
	Set(name, value string, exported bool)
}

// Runner executes a parsed chain as a subshell and captures its stdout, for
// $(...) and backtick command substitution.
type Runner interface {
	Capture(chain *ast.Node) (output string, status int, err error)
}

// Parser ties together a tokenizer environment, the variable store, and a
// substitution runner to turn lines into command chains.
type Parser struct {
	Env    token.Env
	Vars   Vars
	Runner Runner
	Cwd    func() string
	Home   func() string
}

// New creates a Parser wired to the given collaborators.
func New(env token.Env, vars Vars, runner Runner, cwd, home func() string) *Parser {
	return &Parser{Env: env, Vars: vars, Runner: runner, Cwd: cwd, Home: home}
}

// Parse tokenizes and parses one logical line into the head of a command
// chain. A nil, nil result means the line was empty, a comment, or pure
// variable assignments.
func (p *Parser) Parse(line string) (*ast.Node, error) {
	toks, err := token.Tokenize(line, p.Env)
	if err != nil {
		return nil, err
	}
	return p.parseTokens(toks)
}

var assignRE = func(s string) (name, value string, ok bool) {
	eq := strings.IndexByte(s, '=')
	if eq <= 0 {
		return "", "", false
	}
	name = s[:eq]
	if !isValidVarName(name) {
		return "", "", false
	}
	return name, s[eq+1:], true
}

func isValidVarName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		isStart := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if i == 0 && !isStart {
			return false
		}
		if i > 0 && !isStart && !isDigit {
			return false
		}
	}
	return true
}

func (p *Parser) parseTokens(toks []token.Token) (*ast.Node, error) {
	// Assignment prefix: consume leading NAME=VALUE literals.
	i := 0
	for i < len(toks) {
		tok := toks[i]
		if tok.Kind != token.Literal {
			break
		}
		name, value, ok := assignRE(tok.Text)
		if !ok {
			break
		}
		if p.Vars != nil {
			p.Vars.Set(name, value, false)
		}
		i++
	}
	if i == len(toks) {
		return nil, nil
	}
	toks = toks[i:]

	head := &ast.Node{}
	cur := head
	prevOp := ast.None

	j := 0
	for j < len(toks) {
		tok := toks[j]
		switch tok.Kind {
		case token.Literal:
			if err := p.appendArg(cur, p.expandLiteral(tok.Text)...); err != nil {
				return nil, err
			}
			j++
		case token.Quoted, token.Variable:
			if err := p.appendArg(cur, tok.Text); err != nil {
				return nil, err
			}
			j++
		case token.CmdSub:
			out, err := p.runCmdSub(tok.Text)
			if err != nil {
				return nil, err
			}
			if err := p.appendArg(cur, out); err != nil {
				return nil, err
			}
			j++
		case token.Redirection:
			redir, consumed, err := p.parseRedirection(tok, toks[j+1:])
			if err != nil {
				return nil, err
			}
			if len(cur.Redirs) >= ast.MaxRedirections {
				return nil, qerrors.ErrTooManyRedirs
			}
			cur.Redirs = append(cur.Redirs, redir)
			j += 1 + consumed
		case token.Operator:
			op, err := opFromText(tok.Text)
			if err != nil {
				return nil, err
			}
			cur.Op = op
			prevOp = op
			next := &ast.Node{}
			cur.Next = next
			cur = next
			j++
		}
	}

	// Trailing operator handling: a dangling && / || / | is a parse error;
	// a trailing ; or & simply leaves an empty tail node to be trimmed.
	if cur.Cmd == "" && len(cur.Argv) == 0 && len(cur.Redirs) == 0 {
		switch prevOp {
		case ast.Pipe, ast.And, ast.Or:
			return nil, qerrors.ErrDanglingOperator
		default:
			// Find the node pointing at cur and cut it loose.
			if head == cur {
				return nil, nil
			}
			for n := head; n != nil; n = n.Next {
				if n.Next == cur {
					n.Next = nil
					break
				}
			}
		}
	}

	if head.Cmd == "" && len(head.Argv) == 0 && len(head.Redirs) == 0 && head.Next == nil {
		return nil, nil
	}

	return head, nil
}

func (p *Parser) appendArg(n *ast.Node, values ...string) error {
	if len(n.Argv)+len(values) > ast.MaxArgs {
		return qerrors.ErrTooManyArgs
	}
	for _, v := range values {
		if len(n.Argv) == 0 {
			n.Cmd = v
		}
		n.Argv = append(n.Argv, v)
	}
	return nil
}

func (p *Parser) expandLiteral(word string) []string {
	expanded := p.expandTilde(word)
	if containsGlobChar(expanded) {
		if matches, ok := p.expandGlob(expanded); ok {
			return matches
		}
	}
	return []string{expanded}
}

func containsGlobChar(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

func (p *Parser) runCmdSub(inner string) (string, error) {
	chain, err := p.Parse(inner)
	if err != nil {
		return "", err
	}
	if chain == nil || p.Runner == nil {
		return "", nil
	}
	out, _, err := p.Runner.Capture(chain)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

func (p *Parser) parseRedirection(tok token.Token, rest []token.Token) (ast.Redirection, int, error) {
	kind, hasTarget := redirKindFromText(tok.Text)
	if !hasTarget {
		return ast.Redirection{Kind: kind}, 0, nil
	}
	if len(rest) == 0 {
		return ast.Redirection{}, 0, qerrors.ErrMissingTarget
	}
	target := rest[0]
	if target.Kind == token.Operator || target.Kind == token.Redirection {
		return ast.Redirection{}, 0, qerrors.ErrMissingTarget
	}
	return ast.Redirection{Kind: kind, Target: target.Text}, 1, nil
}

func redirKindFromText(text string) (ast.RedirKind, bool) {
	switch text {
	case "<":
		return ast.InFile, true
	case ">":
		return ast.OutFile, true
	case ">>":
		return ast.AppendFile, true
	case "2>":
		return ast.ErrFile, true
	case "2>>":
		return ast.ErrAppendFile, true
	case "2>&1", "2>>&1":
		return ast.ErrToOut, false
	case "&>":
		return ast.BothOut, true
	case "<<":
		return ast.HereDoc, true
	default:
		return ast.OutFile, true
	}
}

func opFromText(text string) (ast.Op, error) {
	switch text {
	case "|":
		return ast.Pipe, nil
	case "&&":
		return ast.And, nil
	case "||":
		return ast.Or, nil
	case "&":
		return ast.Background, nil
	case ";":
		return ast.None, nil
	default:
		return ast.None, qerrors.Wrap(fmt.Errorf("unknown operator %q", text), qerrors.ErrParse, "parse")
	}
}
