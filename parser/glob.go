package parser

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// expandGlob matches pattern against the shell's current working directory
// using POSIX-style * ? [...] classes. A GLOB_NOMATCH (no hits, or a
// malformed pattern) reports ok=false so the caller keeps the literal
// pattern unexpanded. Brace expansion ({a,b}) is out of scope.
func (p *Parser) expandGlob(pattern string) (matches []string, ok bool) {
	cwd := "."
	if p.Cwd != nil {
		if c := p.Cwd(); c != "" {
			cwd = c
		}
	}

	fsys := os.DirFS(cwd)
	rel := pattern
	abs := filepath.IsAbs(pattern)
	if abs {
		rel = pattern[1:]
		fsys = os.DirFS("/")
	}

	hits, err := doublestar.Glob(fsys, rel)
	if err != nil || len(hits) == 0 {
		return nil, false
	}

	sort.Strings(hits)
	if abs {
		for i, h := range hits {
			hits[i] = "/" + h
		}
	}
	return hits, true
}
