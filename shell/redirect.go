package shell

import (
	"os"
	"path/filepath"

	"qsh/ast"
	qerrors "qsh/errors"
)

// ensureParentDir creates path's parent directory tree with 0755 if it does
// not already exist, matching how a real shell's ">" never fails just
// because the destination directory hasn't been created yet.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// openRedirections applies a node's redirection list, in order, against the
// stdin/stdout/stderr it would otherwise inherit. Later entries override
// earlier ones, matching how a real shell processes `> a 2>&1` left to
// right. The returned closer must run once the stage finishes, closing only
// the files this call opened (never the fds it was handed).
func (sh *Shell) openRedirections(node *ast.Node, stdin, stdout, stderr *os.File) (in, out, errOut *os.File, closer func(), err error) {
	in, out, errOut = stdin, stdout, stderr
	var opened []*os.File
	closer = func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for _, r := range node.Redirs {
		switch r.Kind {
		case ast.InFile:
			f, oerr := os.Open(r.Target)
			if oerr != nil {
				closer()
				return nil, nil, nil, func() {}, qerrors.Wrap(oerr, qerrors.ErrRedir, r.Target)
			}
			opened = append(opened, f)
			in = f

		case ast.OutFile:
			if oerr := ensureParentDir(r.Target); oerr != nil {
				closer()
				return nil, nil, nil, func() {}, qerrors.Wrap(oerr, qerrors.ErrRedir, r.Target)
			}
			f, oerr := os.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if oerr != nil {
				closer()
				return nil, nil, nil, func() {}, qerrors.Wrap(oerr, qerrors.ErrRedir, r.Target)
			}
			opened = append(opened, f)
			out = f

		case ast.AppendFile:
			f, oerr := os.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
			if oerr != nil {
				closer()
				return nil, nil, nil, func() {}, qerrors.Wrap(oerr, qerrors.ErrRedir, r.Target)
			}
			opened = append(opened, f)
			out = f

		case ast.ErrFile:
			f, oerr := os.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if oerr != nil {
				closer()
				return nil, nil, nil, func() {}, qerrors.Wrap(oerr, qerrors.ErrRedir, r.Target)
			}
			opened = append(opened, f)
			errOut = f

		case ast.ErrAppendFile:
			f, oerr := os.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
			if oerr != nil {
				closer()
				return nil, nil, nil, func() {}, qerrors.Wrap(oerr, qerrors.ErrRedir, r.Target)
			}
			opened = append(opened, f)
			errOut = f

		case ast.ErrToOut:
			errOut = out

		case ast.BothOut:
			if oerr := ensureParentDir(r.Target); oerr != nil {
				closer()
				return nil, nil, nil, func() {}, qerrors.Wrap(oerr, qerrors.ErrRedir, r.Target)
			}
			f, oerr := os.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if oerr != nil {
				closer()
				return nil, nil, nil, func() {}, qerrors.Wrap(oerr, qerrors.ErrRedir, r.Target)
			}
			opened = append(opened, f)
			out = f
			errOut = f

		case ast.HereDoc:
			f, oerr := sh.spoolHereDoc(r.Target)
			if oerr != nil {
				closer()
				return nil, nil, nil, func() {}, qerrors.Wrap(oerr, qerrors.ErrRedir, "heredoc")
			}
			opened = append(opened, f)
			in = f
		}
	}

	return in, out, errOut, closer, nil
}
