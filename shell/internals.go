package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"qsh/ast"
	qerrors "qsh/errors"
)

type builtinFn func(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int

var builtins = map[string]builtinFn{
	"cd":      builtinCd,
	"exit":    builtinExit,
	"pwd":     builtinPwd,
	"echo":    builtinEcho,
	"true":    builtinTrue,
	"false":   builtinFalse,
	"help":    builtinHelp,
	"history": builtinHistory,
	"jobs":    builtinJobs,
	"fg":      builtinFg,
	"bg":      builtinBg,
	"wait":    builtinWait,
	"kill":    builtinKill,
	"export":  builtinExport,
	"unset":   builtinUnset,
	"alias":   builtinAlias,
	"unalias": builtinUnalias,
	"profile": builtinProfile,
}

func isInternal(cmd string) bool {
	_, ok := builtins[cmd]
	return ok
}

func (sh *Shell) runInternal(node *ast.Node, stdin, stdout, stderr *os.File) int {
	fn, ok := builtins[node.Cmd]
	if !ok {
		fmt.Fprintf(stderr, "qsh: %s: command not found\n", node.Cmd)
		return 127
	}
	return fn(sh, node.Argv, stdin, stdout, stderr)
}

func builtinCd(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	target := sh.home
	switch {
	case len(argv) >= 2 && argv[1] == "-":
		target = sh.prevCwd
		fmt.Fprintln(stdout, target)
	case len(argv) >= 2:
		target = argv[1]
	}
	if target == "" {
		target = "/"
	}
	if filepath.IsAbs(target) {
		target = filepath.Clean(target)
	} else {
		target = filepath.Join(sh.cwd, target)
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(stderr, "cd: %s: no such directory\n", target)
		return 1
	}
	if err := os.Chdir(target); err != nil {
		fmt.Fprintf(stderr, "cd: %s: %v\n", target, err)
		return 1
	}
	sh.prevCwd = sh.cwd
	sh.cwd = target
	sh.vars.Set("PWD", sh.cwd, true)
	return 0
}

func builtinExit(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	status := sh.lastStatus
	if len(argv) >= 2 {
		if n, err := strconv.Atoi(argv[1]); err == nil {
			status = n
		}
	}
	sh.shouldExit = true
	sh.exitStatus = status
	return status
}

func builtinPwd(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	fmt.Fprintln(stdout, sh.cwd)
	return 0
}

func builtinEcho(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	args := argv[1:]
	newline := true
	interpret := false

	for len(args) > 0 {
		flag := args[0]
		if len(flag) < 2 || flag[0] != '-' {
			break
		}
		rest := flag[1:]
		if rest == "" {
			break
		}
		ok := true
		for _, c := range rest {
			if c != 'n' && c != 'e' {
				ok = false
				break
			}
		}
		if !ok {
			break
		}
		for _, c := range rest {
			if c == 'n' {
				newline = false
			} else {
				interpret = true
			}
		}
		args = args[1:]
	}

	out := strings.Join(args, " ")
	if interpret {
		out = expandEchoEscapes(out)
	}
	fmt.Fprint(stdout, out)
	if newline {
		fmt.Fprintln(stdout)
	}
	return 0
}

// expandEchoEscapes interprets \n \t \r \\ for "echo -e", leaving any other
// backslash sequence untouched.
func expandEchoEscapes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case 't':
				b.WriteByte('\t')
				i++
				continue
			case 'r':
				b.WriteByte('\r')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func builtinTrue(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int  { return 0 }
func builtinFalse(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int { return 1 }

func builtinHelp(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	fmt.Fprintln(stdout, "qsh built-in commands:", strings.Join(names, " "))
	return 0
}

func builtinHistory(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	for i, e := range sh.history.All() {
		when := time.Unix(e.Timestamp, 0).Local().Format("2006-01-02 15:04:05")
		fmt.Fprintf(stdout, "%5d  %s  [%3d]  %s\n", i+1, when, e.ExitStatus, e.Command)
	}
	return 0
}

func builtinJobs(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	for _, j := range sh.jobs.List() {
		state := "Running"
		if j.Stopped {
			state = "Stopped"
		}
		fmt.Fprintf(stdout, "[%d]  %s\t%s\n", j.ID, state, j.Cmd)
	}
	return 0
}

func builtinFg(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	j, err := sh.resolveJobArg(argv)
	if err != nil {
		fmt.Fprintln(stderr, "fg:", err)
		return 1
	}
	if j.Stopped {
		if err := sh.jobs.Continue(j); err != nil {
			fmt.Fprintln(stderr, "fg:", err)
			return 1
		}
	}
	sh.terminal.foreground(j.Pgid)
	for _, pid := range j.Pids {
		sh.jobs.Wait4(pid, 0)
	}
	sh.terminal.reclaim()
	sh.jobs.Remove(j.ID)
	return j.Status
}

func builtinBg(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	j, err := sh.resolveJobArg(argv)
	if err != nil {
		fmt.Fprintln(stderr, "bg:", err)
		return 1
	}
	if err := sh.jobs.Continue(j); err != nil {
		fmt.Fprintln(stderr, "bg:", err)
		return 1
	}
	fmt.Fprintf(stdout, "[%d] %s\n", j.ID, j.Cmd)
	return 0
}

func builtinWait(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	status := 0
	if len(argv) >= 2 {
		j, err := sh.resolveJobArg(argv)
		if err != nil {
			fmt.Fprintln(stderr, "wait:", err)
			return 1
		}
		for _, pid := range j.Pids {
			sh.jobs.Wait4(pid, 0)
		}
		sh.jobs.Remove(j.ID)
		return j.Status
	}
	for _, j := range sh.jobs.List() {
		for _, pid := range j.Pids {
			sh.jobs.Wait4(pid, 0)
		}
		status = j.Status
		sh.jobs.Remove(j.ID)
	}
	return status
}

func (sh *Shell) resolveJobArg(argv []string) (*Job, error) {
	jobs := sh.jobs.List()
	if len(argv) < 2 {
		if len(jobs) == 0 {
			return nil, qerrors.ErrJobNotFound
		}
		return jobs[len(jobs)-1], nil
	}
	spec := strings.TrimPrefix(argv[1], "%")
	id, err := strconv.Atoi(spec)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrJob, "job spec")
	}
	j, ok := sh.jobs.Get(id)
	if !ok {
		return nil, qerrors.ErrJobNotFound
	}
	return j, nil
}

func builtinKill(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	sig := syscall.SIGTERM
	args := argv[1:]
	if len(args) > 0 && strings.HasPrefix(args[0], "-") {
		parsed, err := parseSignal(args[0])
		if err != nil {
			fmt.Fprintln(stderr, "kill:", err)
			return 1
		}
		sig = parsed
		args = args[1:]
	}
	if len(args) == 0 {
		fmt.Fprintln(stderr, "kill: usage: kill [-SIGNAL] pid|%job ...")
		return 1
	}

	status := 0
	for _, spec := range args {
		if strings.HasPrefix(spec, "%") {
			j, err := sh.resolveJobArg([]string{"kill", spec})
			if err != nil {
				fmt.Fprintln(stderr, "kill:", err)
				status = 1
				continue
			}
			if err := syscall.Kill(-j.Pgid, sig); err != nil {
				fmt.Fprintln(stderr, "kill:", err)
				status = 1
			}
			continue
		}
		pid, err := strconv.Atoi(spec)
		if err != nil {
			fmt.Fprintln(stderr, "kill:", err)
			status = 1
			continue
		}
		if err := syscall.Kill(pid, sig); err != nil {
			fmt.Fprintln(stderr, "kill:", err)
			status = 1
		}
	}
	return status
}

func builtinExport(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	if len(argv) < 2 {
		for _, v := range sh.vars.All() {
			if v.Exported {
				fmt.Fprintf(stdout, "export %s=%s\n", v.Name, v.Value)
			}
		}
		return 0
	}
	for _, arg := range argv[1:] {
		if name, value, ok := strings.Cut(arg, "="); ok {
			sh.vars.Set(name, value, true)
		} else {
			sh.vars.Export(arg)
		}
	}
	return 0
}

func builtinUnset(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	for _, name := range argv[1:] {
		sh.vars.Unset(name)
	}
	return 0
}

func builtinAlias(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	if len(argv) < 2 {
		for _, name := range sh.aliases.All() {
			value, _ := sh.aliases.Get(name)
			fmt.Fprintf(stdout, "alias %s='%s'\n", name, value)
		}
		return 0
	}
	for _, arg := range argv[1:] {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			if v, ok := sh.aliases.Get(arg); ok {
				fmt.Fprintf(stdout, "alias %s='%s'\n", arg, v)
			}
			continue
		}
		sh.aliases.Set(name, value)
	}
	return 0
}

func builtinUnalias(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	for _, name := range argv[1:] {
		sh.aliases.Unset(name)
	}
	return 0
}

func builtinProfile(sh *Shell, argv []string, stdin, stdout, stderr *os.File) int {
	if len(argv) < 2 {
		fmt.Fprintln(stderr, "profile: usage: profile on|off|status")
		return 1
	}
	switch argv[1] {
	case "on":
		if err := sh.profiler.Start(os.Getpid()); err != nil {
			fmt.Fprintln(stderr, "profile:", err)
			return 1
		}
	case "off":
		if err := sh.profiler.Stop(); err != nil {
			fmt.Fprintln(stderr, "profile:", err)
			return 1
		}
	case "status":
		fmt.Fprint(stdout, sh.profiler.Snapshot().String())
	default:
		fmt.Fprintln(stderr, "profile: usage: profile on|off|status")
		return 1
	}
	return 0
}
