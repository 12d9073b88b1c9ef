package shell

import (
	"bytes"
	"io"
	"os"
	"strings"

	"qsh/ast"
)

// Capture implements parser.Runner for command substitution: it runs chain
// to completion with its final stdout captured instead of inherited, and
// returns the captured text with exactly one trailing newline stripped
// (POSIX $(...) semantics), alongside the chain's exit status.
func (sh *Shell) Capture(chain *ast.Node) (string, int, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return "", 1, err
	}

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		io.Copy(&buf, r)
		r.Close()
		close(done)
	}()

	status := sh.runChainCapture(chain, w)
	w.Close()
	<-done

	out := strings.TrimSuffix(buf.String(), "\n")
	return out, status, nil
}

// runChainCapture mirrors runChain but forces the last stage of every
// pipeline in the chain to write to out rather than the shell's own stdout.
func (sh *Shell) runChainCapture(chain *ast.Node, out *os.File) int {
	status := sh.lastStatus
	node := chain

	for node != nil {
		stages, rest, boundary := collectPipeline(node)
		background := boundary == ast.Background

		text := pipelineText(stages)
		status = sh.runPipeline(stages, background, text, out)

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
