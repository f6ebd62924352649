package exec

import (
	"io"
	"os"
	"strconv"

	"git.sr.ht/~anton/crux/ast"
	"git.sr.ht/~anton/crux/expand"
)

// execCommand runs one *ast.Command: resolve assignments, resolve
// redirections, then dispatch to a function, a builtin, or an external
// process, in that priority order (spec §4.5).
func (sh *Shell) execCommand(node *ast.Command) error {
	assigns := make(map[string]string, len(node.Assignments))
	for _, a := range node.Assignments {
		v, err := sh.ExpandAssignmentValue(a.Value)
		if err != nil {
			return err
		}
		assigns[a.Name] = v
	}

	if node.NameWord == nil {
		for name, v := range assigns {
			sh.State.Set(name, v)
		}
		sh.State.LastStatus = 0
		return nil
	}

	var argv []string
	nameFields, err := expand.Expand(*node.NameWord, sh.argCtx())
	if err != nil {
		return err
	}
	argv = append(argv, nameFields...)
	for _, w := range node.ArgWords {
		fs, err := expand.Expand(w, sh.argCtx())
		if err != nil {
			return err
		}
		argv = append(argv, fs...)
	}
	if len(argv) == 0 {
		sh.State.LastStatus = 0
		return nil
	}

	redirs, err := sh.resolveRedirections(node.Redirs)
	if err != nil {
		return err
	}

	if fn, ok := sh.State.Functions[argv[0]]; ok {
		return sh.callFunction(fn, argv, assigns)
	}

	if b, ok := sh.Host.LookupBuiltin(argv[0]); ok {
		stdin, stdout, stderr, closeFDs := sh.fdsFor(redirs)
		defer closeFDs()
		// Only a prefix assignment gets its own frame, so that a builtin
		// such as set, read or shift still writes to the caller's frame.
		pop := func() {}
		if len(assigns) > 0 {
			pop = sh.State.PushFrame(nil)
		}
		for name, v := range assigns {
			sh.State.Set(name, v)
		}
		code, err := b(sh, argv, stdin, stdout, stderr)
		pop()
		sh.State.LastStatus = code
		return err
	}

	code, err := sh.Host.RunExternal(argv, assigns, redirs, sh.Stdin, sh.Stdout, sh.Stderr, false)
	if err != nil {
		return err
	}
	sh.State.LastStatus = code
	return nil
}

func (sh *Shell) callFunction(fn *ast.Function, argv []string, assigns map[string]string) error {
	pop := sh.State.PushFrame(argv[1:])
	defer pop()
	for name, v := range assigns {
		sh.State.Set(name, v)
	}
	err := sh.exec(fn.Body)
	if c, ok := err.(control); ok && c.kind == ctlReturn {
		sh.State.LastStatus = c.n
		return nil
	}
	return err
}

// resolveRedirections expands each redirection's target word to a plain
// path string. Opening the target is left to whichever layer ends up
// running the command: fdsFor (afero, for built-ins) or the Executor (a
// real fd, for external processes).
func (sh *Shell) resolveRedirections(rs []ast.Redirection) ([]ResolvedRedir, error) {
	out := make([]ResolvedRedir, 0, len(rs))
	for _, r := range rs {
		target, err := expand.ExpandField(r.Target, sh.noSplitCtx())
		if err != nil {
			return nil, err
		}
		out = append(out, ResolvedRedir{FD: r.FD, Op: r.Op, Target: target})
	}
	return out, nil
}

// fdsFor opens redirection targets against sh.FS (afero.NewOsFs() in
// production, an in-memory filesystem in tests) and returns the streams a
// built-in should read/write, falling back to the shell's own streams for
// anything not overridden. Built-ins never spawn a process, so they never
// need a real OS file descriptor — only external commands do, and those
// are resolved separately by the Executor against the real filesystem.
//
// streams tracks every fd touched so far (starting from the built-in's own
// 0/1/2) keyed by number; `<&`/`>&` dup a fd already in this table rather
// than opening anything, which is also what lets `3>file 1>&3` work even
// though fd 3 has no dedicated named return value.
func (sh *Shell) fdsFor(redirs []ResolvedRedir) (stdin io.Reader, stdout, stderr io.Writer, closeAll func()) {
	streams := map[int]interface{}{0: sh.Stdin, 1: sh.Stdout, 2: sh.Stderr}
	var opened []io.Closer
	closeAll = func() {
		for _, c := range opened {
			c.Close()
		}
	}
	for _, r := range redirs {
		fd := r.FD
		switch r.Op {
		case ast.RedirRead:
			if fd == -1 {
				fd = 0
			}
			if f, err := sh.FS.Open(r.Target); err == nil {
				opened = append(opened, f)
				streams[fd] = f
			}
		case ast.RedirWrite:
			if fd == -1 {
				fd = 1
			}
			if f, err := sh.FS.Create(r.Target); err == nil {
				opened = append(opened, f)
				streams[fd] = f
			}
		case ast.RedirAppend:
			if fd == -1 {
				fd = 1
			}
			if f, err := sh.FS.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644); err == nil {
				opened = append(opened, f)
				streams[fd] = f
			}
		case ast.RedirDupIn, ast.RedirDupOut:
			if fd == -1 {
				if r.Op == ast.RedirDupIn {
					fd = 0
				} else {
					fd = 1
				}
			}
			if src, err := strconv.Atoi(r.Target); err == nil {
				if s, ok := streams[src]; ok {
					streams[fd] = s
				}
			}
		}
	}
	if v, ok := streams[0].(io.Reader); ok {
		stdin = v
	}
	if v, ok := streams[1].(io.Writer); ok {
		stdout = v
	}
	if v, ok := streams[2].(io.Writer); ok {
		stderr = v
	}
	return
}

// execPipeline wires each stage's stdout to the next stage's stdin via
// os.Pipe, spawns every stage before waiting on any of them (so that a
// blocked early stage cannot deadlock a later one against a full pipe
// buffer), and reports the rightmost stage's status — or, when
// ShellState.PipeFail is set, the status of the leftmost stage to fail
// (spec §5's "pipefail" extension).
func (sh *Shell) execPipeline(node *ast.Pipeline) error {
	n := len(node.Stages)
	if n == 1 {
		err := sh.exec(node.Stages[0])
		if err == nil && node.Negate {
			sh.State.LastStatus = boolToStatus(sh.State.LastStatus != 0)
		}
		return err
	}

	readers := make([]*os.File, n)
	writers := make([]*os.File, n)
	readers[0] = sh.Stdin
	writers[n-1] = sh.Stdout
	for i := 0; i < n-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			return err
		}
		writers[i] = w
		readers[i+1] = r
	}

	statuses := make([]int, n)
	errs := make([]error, n)
	done := make(chan int, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			stage := node.Stages[i]
			stageShell := sh.deriveForkedState(readers[i], writers[i], sh.Stderr)
			errs[i] = stageShell.exec(stage)
			statuses[i] = stageShell.State.LastStatus
			// Close this stage's own ends of the pipe as soon as it is
			// done so the neighbor blocked on read/write sees EOF/EPIPE
			// immediately rather than waiting for every stage to finish.
			if i < n-1 {
				writers[i].Close()
			}
			if i > 0 {
				readers[i].Close()
			}
			done <- i
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}

	status := statuses[n-1]
	if sh.State.PipeFail {
		for i := 0; i < n; i++ {
			if statuses[i] != 0 {
				status = statuses[i]
				break
			}
		}
	}
	sh.State.LastStatus = status
	if node.Negate {
		sh.State.LastStatus = boolToStatus(status != 0)
	}
	for _, e := range errs {
		if e != nil {
			if _, ok := e.(control); ok {
				return e
			}
		}
	}
	return nil
}

func boolToStatus(b bool) int {
	if b {
		return 0
	}
	return 1
}
