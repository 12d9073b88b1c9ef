package parser

import (
	"os/user"
	"strings"
)

// expandTilde applies the leading-tilde expansion rule: "~" and "~/..."
// resolve against $HOME; "~USER[/...]" resolves USER's home directory and
// is left unexpanded on lookup miss.
func (p *Parser) expandTilde(word string) string {
	if !strings.HasPrefix(word, "~") {
		return word
	}

	rest := word[1:]
	slash := strings.IndexByte(rest, '/')
	name := rest
	tail := ""
	if slash >= 0 {
		name = rest[:slash]
		tail = rest[slash:]
	}

	if name == "" {
		home := ""
		if p.Home != nil {
			home = p.Home()
		}
		if home == "" {
			return word
		}
		return home + tail
	}

	u, err := user.Lookup(name)
	if err != nil {
		return word
	}
	return u.HomeDir + tail
}
