// Package host implements the narrow exec.Executor interface (spec §6.2)
// against a real operating system process table and filesystem, grounded
// on the teacher's builtin.cmd/*exec.Cmd plumbing. A Host carries a
// github.com/spf13/afero filesystem, but nothing in this package reads it:
// redirections for external commands are opened on the real filesystem,
// and cd changes the real working directory.
package host

import (
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"strconv"
	"syscall"

	"git.sr.ht/~anton/crux/ast"
	"git.sr.ht/~anton/crux/exec"

	"github.com/spf13/afero"
)

// Host is the concrete exec.Executor: it spawns real child processes with
// os/exec and opens their file redirections with os.Open/os.Create/
// os.OpenFile. FS (afero.NewOsFs() in production, afero.NewMemMapFs() in
// tests) is stored but not consulted by any Host method.
type Host struct {
	FS       afero.Fs
	Builtins map[string]exec.Builtin
}

// New creates a Host backed by fs (typically afero.NewOsFs()) with the
// given builtin table.
func New(fs afero.Fs, builtins map[string]exec.Builtin) *Host {
	return &Host{FS: fs, Builtins: builtins}
}

func (h *Host) LookupBuiltin(name string) (exec.Builtin, bool) {
	b, ok := h.Builtins[name]
	return b, ok
}

// RunExternal spawns argv[0] as a child process. Background jobs are put
// in their own process group (syscall.SysProcAttr.Setpgid) so that an
// interactive session's Ctrl-C does not also kill a `cmd &` job (spec
// §5's background-job handling).
func (h *Host) RunExternal(argv []string, assigns map[string]string, redirs []exec.ResolvedRedir, stdin, stdout, stderr *os.File, background bool) (int, error) {
	path, err := osexec.LookPath(argv[0])
	if err != nil {
		fmt.Fprintf(stderr, "%s: command not found\n", argv[0])
		return 127, nil
	}

	c := osexec.Command(path, argv[1:]...)
	c.Env = append(os.Environ(), envPairs(assigns)...)

	opened, err := applyRedirs(c, redirs, stdin, stdout, stderr)
	defer closeAll(opened)
	if err != nil {
		return 1, err
	}

	if background {
		c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	if err := c.Start(); err != nil {
		fmt.Fprintf(stderr, "%s: %s\n", argv[0], err)
		return 126, nil
	}
	if background {
		return 0, nil
	}
	err = c.Wait()
	if err == nil {
		return 0, nil
	}
	if ee, ok := err.(*osexec.ExitError); ok {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				return 128 + int(ws.Signal()), nil
			}
			return ws.ExitStatus(), nil
		}
	}
	return 1, err
}

func envPairs(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}

// applyRedirs opens each redirection target against the real filesystem
// (os/exec needs real *os.File descriptors, not an afero.File), tracking a
// table of every fd touched so far (starting from the process's own 0/1/2)
// so that `<&`/`>&` can dup an earlier fd onto another rather than opening
// anything. Redirections apply left to right, matching POSIX's rule that
// `2>&1 >file` and `>file 2>&1` behave differently.
//
// Only a contiguous run of fds starting at 3 can be expressed as
// c.ExtraFiles (os/exec assigns ExtraFiles[i] to fd 3+i unconditionally);
// a gap in the fds actually used stops the run there.
func applyRedirs(c *osexec.Cmd, redirs []exec.ResolvedRedir, stdin, stdout, stderr *os.File) ([]*os.File, error) {
	var opened []*os.File
	fds := map[int]*os.File{0: stdin, 1: stdout, 2: stderr}

	open := func(op ast.RedirOp, target string) (*os.File, error) {
		switch op {
		case ast.RedirRead, ast.RedirReadWrite:
			return os.Open(target)
		case ast.RedirWrite:
			return os.Create(target)
		case ast.RedirAppend:
			return os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		}
		return nil, fmt.Errorf("unsupported redirection")
	}

	for _, r := range redirs {
		fd := r.FD
		switch r.Op {
		case ast.RedirRead, ast.RedirReadWrite, ast.RedirWrite, ast.RedirAppend:
			def := 1
			if r.Op == ast.RedirRead || r.Op == ast.RedirReadWrite {
				def = 0
			}
			if fd == -1 {
				fd = def
			}
			f, err := open(r.Op, r.Target)
			if err != nil {
				return opened, err
			}
			opened = append(opened, f)
			fds[fd] = f
		case ast.RedirDupIn, ast.RedirDupOut:
			if fd == -1 {
				if r.Op == ast.RedirDupIn {
					fd = 0
				} else {
					fd = 1
				}
			}
			src, err := strconv.Atoi(r.Target)
			if err != nil {
				return opened, fmt.Errorf("%s: ambiguous file descriptor redirect", r.Target)
			}
			f, ok := fds[src]
			if !ok {
				return opened, fmt.Errorf("%d: bad file descriptor", src)
			}
			fds[fd] = f
		}
	}

	c.Stdin, c.Stdout, c.Stderr = fds[0], fds[1], fds[2]
	c.ExtraFiles = nil
	for fd := 3; ; fd++ {
		f, ok := fds[fd]
		if !ok {
			break
		}
		c.ExtraFiles = append(c.ExtraFiles, f)
	}
	return opened, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

// Capture runs run with a fresh os.Pipe as its stdout argument and returns
// everything written to it, for $(...) and `...` substitution.
func (h *Host) Capture(run func(stdout *os.File) error) (string, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}
	done := make(chan struct{})
	var out []byte
	var readErr error
	go func() {
		out, readErr = io.ReadAll(r)
		close(done)
	}()

	runErr := run(w)
	w.Close()
	<-done
	r.Close()
	if readErr != nil {
		return "", readErr
	}
	return string(out), runErr
}
