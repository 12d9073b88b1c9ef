package shell

import (
	"os"
)

// spoolHereDoc reads lines from the shell's interactive input until one
// equals delimiter exactly, writing them to an unlinked temp file that
// serves as the redirected stdin. Unlinking immediately after creation (the
// classic self-cleaning temp file trick) means the file vanishes from the
// filesystem the moment this function returns, but the open descriptor
// keeps its content reachable for as long as the stage needs it.
func (sh *Shell) spoolHereDoc(delimiter string) (*os.File, error) {
	f, err := os.CreateTemp("", "qsh-heredoc-*")
	if err != nil {
		return nil, err
	}
	os.Remove(f.Name())

	for {
		line, ok := sh.readRawLine("> ")
		if !ok || line == delimiter {
			break
		}
		if _, err := f.WriteString(line + "\n"); err != nil {
			f.Close()
			return nil, err
		}
	}

	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
