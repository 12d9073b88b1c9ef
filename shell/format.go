package shell

import (
	"strings"

	shellquote "github.com/kballard/go-shellquote"
)

// joinArgv renders one stage's argv back into shell-quoted text, used for
// job listings. History records the raw input line, not this rendering.
func joinArgv(argv []string) string {
	return shellquote.Join(argv...)
}

// joinPipeline stitches quoted stages back together with " | ", the form
// `jobs` prints for a running pipeline.
func joinPipeline(stages []string) string {
	return strings.Join(stages, " | ")
}
