package token

import (
	"fmt"
	"strconv"
	"strings"

	qerrors "qsh/errors"
)

var varNameStart = func(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

var varNameCont = func(b byte) bool {
	return varNameStart(b) || (b >= '0' && b <= '9')
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' }

// isSpecial reports whether b ends a literal word.
func isSpecial(b byte) bool {
	switch b {
	case ' ', '\t', '|', '&', ';', '<', '>', '#', '"', '\'', '$':
		return true
	default:
		return false
	}
}

type lexer struct {
	s   string
	pos int
	env Env
}

// Tokenize lexes a single logical line (trailing newline already stripped)
// into an ordered token list per the tokenizer's recognition-rule priority.
func Tokenize(line string, env Env) ([]Token, error) {
	l := &lexer{s: line, env: env}
	var out []Token

	for l.pos < len(l.s) {
		b := l.s[l.pos]

		if isSpace(b) {
			l.pos++
			continue
		}
		if b == '#' {
			break
		}

		if tok, ok, err := l.lexRedirOrOperator(); err != nil {
			return nil, err
		} else if ok {
			out = append(out, tok)
			continue
		}

		if strings.HasPrefix(l.s[l.pos:], "$((") {
			tok, err := l.lexArith()
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
			continue
		}

		if strings.HasPrefix(l.s[l.pos:], "$(") {
			tok, err := l.lexCmdSubParen()
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
			continue
		}

		if b == '`' {
			tok, err := l.lexCmdSubBacktick()
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
			continue
		}

		if b == '!' {
			if tok, ok := l.lexHistory(); ok {
				out = append(out, tok)
				continue
			}
		}

		if b == '\'' {
			tok, err := l.lexSingleQuoted()
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
			continue
		}

		if b == '"' {
			tok, err := l.lexDoubleQuoted()
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
			continue
		}

		if b == '$' {
			if tok, ok := l.lexVariable(); ok {
				out = append(out, tok)
				continue
			}
		}

		out = append(out, l.lexLiteral())
	}

	return out, nil
}

// lexRedirOrOperator matches operator/redirection forms, longest prefix first.
func (l *lexer) lexRedirOrOperator() (Token, bool, error) {
	rest := l.s[l.pos:]

	type form struct {
		text string
		kind Kind
	}
	// Longest match first.
	forms := []form{
		{"2>>&1", Redirection},
		{"2>&1", Redirection},
		{"2>>", Redirection},
		{"&&", Operator},
		{"||", Operator},
		{">>", Redirection},
		{"<<", Redirection},
		{"&>", Redirection},
		{"2>", Redirection},
		{"|", Operator},
		{"&", Operator},
		{";", Operator},
		{"<", Redirection},
		{">", Redirection},
	}

	for _, f := range forms {
		if strings.HasPrefix(rest, f.text) {
			l.pos += len(f.text)
			return Token{Kind: f.kind, Text: f.text}, true, nil
		}
	}
	return Token{}, false, nil
}

// lexCmdSubParen lexes $(...) honoring nested parens and backslash escapes.
func (l *lexer) lexCmdSubParen() (Token, error) {
	start := l.pos
	l.pos += 2 // skip "$("
	depth := 1
	var b strings.Builder
	for l.pos < len(l.s) {
		c := l.s[l.pos]
		if c == '\\' && l.pos+1 < len(l.s) {
			b.WriteByte(c)
			b.WriteByte(l.s[l.pos+1])
			l.pos += 2
			continue
		}
		if c == '(' {
			depth++
			b.WriteByte(c)
			l.pos++
			continue
		}
		if c == ')' {
			depth--
			l.pos++
			if depth == 0 {
				return Token{Kind: CmdSub, Text: b.String()}, nil
			}
			b.WriteByte(c)
			continue
		}
		b.WriteByte(c)
		l.pos++
	}
	_ = start
	return Token{}, qerrors.Wrap(fmt.Errorf("unterminated $("), qerrors.ErrLex, "tokenize")
}

// lexCmdSubBacktick lexes `...`, terminated by the next unescaped backtick.
func (l *lexer) lexCmdSubBacktick() (Token, error) {
	l.pos++ // skip opening backtick
	var b strings.Builder
	for l.pos < len(l.s) {
		c := l.s[l.pos]
		if c == '\\' && l.pos+1 < len(l.s) {
			b.WriteByte(l.s[l.pos+1])
			l.pos += 2
			continue
		}
		if c == '`' {
			l.pos++
			return Token{Kind: CmdSub, Text: b.String()}, nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return Token{}, qerrors.ErrTruncatedSubst
}

// lexArith lexes $((expr)), matching to the closing "))" and evaluating
// immediately.
func (l *lexer) lexArith() (Token, error) {
	l.pos += 3 // skip "$(("
	depth := 2
	var b strings.Builder
	for l.pos < len(l.s) {
		c := l.s[l.pos]
		if c == '(' {
			depth++
			b.WriteByte(c)
			l.pos++
			continue
		}
		if c == ')' {
			depth--
			l.pos++
			if depth == 0 {
				result, err := Eval(b.String(), l.env)
				if err != nil {
					return Token{}, err
				}
				return Token{Kind: Literal, Text: strconv.Itoa(result)}, nil
			}
			if depth == 1 {
				// inner ')' that isn't the closing pair yet.
				continue
			}
			b.WriteByte(c)
			continue
		}
		b.WriteByte(c)
		l.pos++
	}
	return Token{}, qerrors.ErrTruncatedSubst
}

// lexHistory matches !! and !N history designators; returns ok=false to
// fall through to the bare "!" literal case.
func (l *lexer) lexHistory() (Token, bool) {
	rest := l.s[l.pos:]
	if strings.HasPrefix(rest, "!!") {
		l.pos += 2
		if l.env != nil {
			if cmd, ok := l.env.HistoryLast(); ok {
				return Token{Kind: Literal, Text: cmd}, true
			}
		}
		return Token{Kind: Literal, Text: ""}, true
	}

	i := 1
	for l.pos+i < len(l.s) && l.s[l.pos+i] >= '0' && l.s[l.pos+i] <= '9' {
		i++
	}
	if i > 1 {
		n, _ := strconv.Atoi(l.s[l.pos+1 : l.pos+i])
		l.pos += i
		if l.env != nil {
			if cmd, ok := l.env.HistoryAt(n); ok {
				return Token{Kind: Literal, Text: cmd}, true
			}
		}
		return Token{Kind: Literal, Text: ""}, true
	}

	return Token{}, false
}

func (l *lexer) lexSingleQuoted() (Token, error) {
	l.pos++ // skip opening quote
	var b strings.Builder
	for l.pos < len(l.s) {
		c := l.s[l.pos]
		if c == '\'' {
			l.pos++
			return Token{Kind: Quoted, Text: b.String()}, nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return Token{}, qerrors.ErrUnclosedQuote
}

func (l *lexer) lexDoubleQuoted() (Token, error) {
	l.pos++ // skip opening quote
	var b strings.Builder
	for l.pos < len(l.s) {
		c := l.s[l.pos]
		if c == '"' {
			l.pos++
			return Token{Kind: Quoted, Text: b.String()}, nil
		}
		if c == '\\' && l.pos+1 < len(l.s) {
			next := l.s[l.pos+1]
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case '\'':
				b.WriteByte('\'')
			default:
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			l.pos += 2
			continue
		}
		b.WriteByte(c)
		l.pos++
	}
	return Token{}, qerrors.ErrUnclosedQuote
}

// lexVariable matches $?, $$, $!, $0, ${NAME}, ${NAME:-default}, $NAME. Returns
// ok=false for a bare "$" so the caller falls through to a literal "$".
func (l *lexer) lexVariable() (Token, bool) {
	if l.pos+1 >= len(l.s) {
		return Token{}, false
	}
	next := l.s[l.pos+1]

	switch next {
	case '?':
		l.pos += 2
		status := 0
		if l.env != nil {
			status = l.env.LastStatus()
		}
		return Token{Kind: Variable, Text: strconv.Itoa(status)}, true
	case '$':
		l.pos += 2
		pid := 0
		if l.env != nil {
			pid = l.env.Pid()
		}
		return Token{Kind: Variable, Text: strconv.Itoa(pid)}, true
	case '!':
		l.pos += 2
		ppid := 0
		if l.env != nil {
			ppid = l.env.Ppid()
		}
		return Token{Kind: Variable, Text: strconv.Itoa(ppid)}, true
	case '0':
		l.pos += 2
		return Token{Kind: Variable, Text: "qsh"}, true
	case '{':
		return l.lexBracedVariable()
	}

	if varNameStart(next) {
		start := l.pos + 1
		i := start
		for i < len(l.s) && varNameCont(l.s[i]) {
			i++
		}
		name := l.s[start:i]
		l.pos = i
		value, _ := l.lookupVar(name)
		return Token{Kind: Variable, Text: value}, true
	}

	return Token{}, false
}

func (l *lexer) lexBracedVariable() (Token, bool) {
	start := l.pos
	i := l.pos + 2 // skip "${"
	nameStart := i
	for i < len(l.s) && varNameCont(l.s[i]) {
		i++
	}
	name := l.s[nameStart:i]

	if i < len(l.s) && l.s[i] == '}' {
		l.pos = i + 1
		value, _ := l.lookupVar(name)
		return Token{Kind: Variable, Text: value}, true
	}

	if strings.HasPrefix(l.s[i:], ":-") {
		j := i + 2
		for j < len(l.s) && l.s[j] != '}' {
			j++
		}
		if j >= len(l.s) {
			l.pos = start
			return Token{}, false
		}
		def := l.s[i+2 : j]
		l.pos = j + 1
		value, ok := l.lookupVar(name)
		if !ok || value == "" {
			return Token{Kind: Variable, Text: def}, true
		}
		return Token{Kind: Variable, Text: value}, true
	}

	l.pos = start
	return Token{}, false
}

func (l *lexer) lookupVar(name string) (string, bool) {
	if l.env == nil {
		return "", false
	}
	return l.env.GetVar(name)
}

func (l *lexer) lexLiteral() Token {
	var b strings.Builder
	for l.pos < len(l.s) {
		c := l.s[l.pos]
		if c == '\\' && l.pos+1 < len(l.s) {
			b.WriteByte(l.s[l.pos+1])
			l.pos += 2
			continue
		}
		if isSpecial(c) {
			break
		}
		b.WriteByte(c)
		l.pos++
	}
	if b.Len() == 0 {
		// A shell-special byte that didn't match any earlier rule (e.g. a
		// bare "$" at end of line): consume it as a one-byte literal.
		b.WriteByte(l.s[l.pos])
		l.pos++
	}
	return Token{Kind: Literal, Text: b.String()}
}
