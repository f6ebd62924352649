// Package exec walks the AST built by package parser and runs it against a
// state.ShellState, an Executor (host-level process/file primitives), and
// the expander. The dispatch loop and pipeline concurrency model are
// grounded on the teacher's vm package: fork every pipeline stage before
// waiting on any of them, then let the rightmost stage's exit status win.
package exec

import (
	"fmt"
	"io"
	"os"

	"git.sr.ht/~anton/crux/ast"
	"git.sr.ht/~anton/crux/expand"
	"git.sr.ht/~anton/crux/pattern"
	"git.sr.ht/~anton/crux/state"

	"github.com/spf13/afero"
)

// Executor is the narrow host interface the tree-walker calls into (spec
// §6.2): it knows nothing about shell syntax, only how to run a resolved
// argv, capture a command's output, and look up a builtin by name. External
// process spawning needs real OS file descriptors, so its I/O is *os.File;
// built-ins never spawn a process and instead run against whatever io.Reader/
// io.Writer the current Shell.FS resolved a redirection to (§4.5, §6.2).
type Executor interface {
	RunExternal(argv []string, assignments map[string]string, redirs []ResolvedRedir, stdin, stdout, stderr *os.File, background bool) (int, error)
	Capture(run func(stdout *os.File) error) (string, error)
	LookupBuiltin(name string) (Builtin, bool)
}

// Builtin is a shell built-in command: it receives its own argv (argv[0] is
// its name) and the streams it should use for standard I/O.
type Builtin func(sh *Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error)

// ResolvedRedir is a Redirection with its target word already expanded to a
// single path/fd.
type ResolvedRedir struct {
	FD     int
	Op     ast.RedirOp
	Target string
}

// Shell ties together the pieces the tree-walker needs on every call:
// shared mutable state, the host executor, the filesystem built-ins
// resolve redirections against, and the expansion context factory (so
// every expansion sees the live IFS/positional parameters).
type Shell struct {
	State *state.ShellState
	Host  Executor
	FS    afero.Fs

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// New creates a Shell wired to run against host, resolving redirections
// against the real filesystem. Tests construct a Shell directly with
// FS: afero.NewMemMapFs() to exercise built-ins without touching disk.
func New(s *state.ShellState, host Executor) *Shell {
	return &Shell{
		State:  s,
		Host:   host,
		FS:     afero.NewOsFs(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// control is the internal, never-user-visible error variant used to unwind
// the tree-walker for break/continue/return/exit (spec §7's "control-flow
// signals are not shell errors; they unwind the interpreter").
type control struct {
	kind controlKind
	n    int // break/continue level, or exit/return status
}

type controlKind int

const (
	ctlBreak controlKind = iota
	ctlContinue
	ctlReturn
	ctlExit
)

func (c control) Error() string { return "control flow signal (internal)" }

// Break, Continue, Return, and Exit construct the control-flow signals the
// break/continue/return/exit built-ins use to unwind the tree-walker (spec
// §7). A built-in returns one of these as its error to request an unwind;
// execCommand propagates it past the normal "builtin errors don't stop the
// script" handling.
func Break(n int) error    { return control{kind: ctlBreak, n: n} }
func Continue(n int) error { return control{kind: ctlContinue, n: n} }
func Return(n int) error   { return control{kind: ctlReturn, n: n} }
func Exit(n int) error     { return control{kind: ctlExit, n: n} }

// derive creates a child Shell that shares state and host but reads/writes
// different streams, used for command substitution (which runs
// synchronously with respect to its parent, so sharing State is safe).
func (sh *Shell) derive(stdin, stdout, stderr *os.File) *Shell {
	return &Shell{State: sh.State, Host: sh.Host, FS: sh.FS, Stdin: stdin, Stdout: stdout, Stderr: stderr}
}

// deriveForkedState creates a child Shell with its own forked ShellState,
// used for pipeline stages: each stage runs concurrently (spec §5), so
// sharing one *ShellState across goroutines would race on LastStatus and
// the scope stack, and would leak one stage's assignments into its
// siblings. Forking gives each stage the isolation a real subshell gets.
func (sh *Shell) deriveForkedState(stdin, stdout, stderr *os.File) *Shell {
	return &Shell{State: sh.State.Fork(), Host: sh.Host, FS: sh.FS, Stdin: stdin, Stdout: stdout, Stderr: stderr}
}

func (sh *Shell) argCtx() expand.Context {
	return expand.ArgContext(sh.State, sh.capture)
}

func (sh *Shell) noSplitCtx() expand.Context {
	return expand.NoSplitContext(sh.State, sh.capture)
}

// capture runs src as a command list with its stdout captured, satisfying
// expand.Capture for $(...) and `...` substitution.
func (sh *Shell) capture(src string) (string, int, error) {
	out, err := sh.Host.Capture(func(w *os.File) error {
		sub, perr := ParseString(src)
		if perr != nil {
			return perr
		}
		child := sh.derive(sh.Stdin, w, sh.Stderr)
		return child.exec(sub)
	})
	status := sh.State.LastStatus
	if err != nil {
		if c, ok := err.(control); ok && c.kind == ctlExit {
			status = c.n
			err = nil
		}
	}
	return out, status, err
}

// Run executes a top-level parsed program (a *ast.List) and returns its
// exit status. Exit-control unwinds are absorbed here, not propagated.
func (sh *Shell) Run(n ast.Node) (int, error) {
	err := sh.exec(n)
	if err != nil {
		if c, ok := err.(control); ok && c.kind == ctlExit {
			sh.State.LastStatus = c.n
			return c.n, nil
		}
		return sh.State.LastStatus, err
	}
	return sh.State.LastStatus, nil
}

func (sh *Shell) exec(n ast.Node) error {
	switch node := n.(type) {
	case *ast.List:
		for _, item := range node.Items {
			if err := sh.exec(item); err != nil {
				return err
			}
		}
		return nil
	case *ast.AndOr:
		return sh.execAndOr(node)
	case *ast.Pipeline:
		return sh.execPipeline(node)
	case *ast.Command:
		return sh.execCommand(node)
	case *ast.If:
		return sh.execIf(node)
	case *ast.While:
		return sh.execLoop(node.Cond, node.Body, false)
	case *ast.Until:
		return sh.execLoop(node.Cond, node.Body, true)
	case *ast.For:
		return sh.execFor(node)
	case *ast.Case:
		return sh.execCase(node)
	case *ast.Function:
		sh.State.Functions[node.Name] = node
		sh.State.LastStatus = 0
		return nil
	case *ast.Subshell:
		return sh.execSubshell(node)
	case *ast.BraceGroup:
		return sh.exec(node.Body)
	}
	return fmt.Errorf("exec: unhandled node %T", n)
}

func (sh *Shell) execAndOr(node *ast.AndOr) error {
	var lastConn ast.Connector = ast.ConnEnd
	for _, item := range node.Items {
		if lastConn == ast.ConnAnd && sh.State.LastStatus != 0 {
			lastConn = item.Conn
			continue
		}
		if lastConn == ast.ConnOr && sh.State.LastStatus == 0 {
			lastConn = item.Conn
			continue
		}
		if err := sh.exec(item.Node); err != nil {
			return err
		}
		lastConn = item.Conn
	}
	return nil
}

func (sh *Shell) execIf(node *ast.If) error {
	if err := sh.exec(node.Cond); err != nil {
		return err
	}
	if sh.State.LastStatus == 0 {
		return sh.exec(node.Then)
	}
	for _, el := range node.Elifs {
		if err := sh.exec(el.Cond); err != nil {
			return err
		}
		if sh.State.LastStatus == 0 {
			return sh.exec(el.Branch)
		}
	}
	if node.Else != nil {
		return sh.exec(node.Else)
	}
	sh.State.LastStatus = 0
	return nil
}

func (sh *Shell) execLoop(cond, body ast.Node, until bool) error {
	for {
		if err := sh.exec(cond); err != nil {
			return err
		}
		hit := sh.State.LastStatus == 0
		if until {
			hit = !hit
		}
		if !hit {
			break
		}
		if err := sh.exec(body); err != nil {
			if c, ok := err.(control); ok {
				switch c.kind {
				case ctlBreak:
					if c.n > 1 {
						return control{kind: ctlBreak, n: c.n - 1}
					}
					return nil
				case ctlContinue:
					if c.n > 1 {
						return control{kind: ctlContinue, n: c.n - 1}
					}
					continue
				}
			}
			return err
		}
	}
	sh.State.LastStatus = 0
	return nil
}

func (sh *Shell) execFor(node *ast.For) error {
	var words []string
	if len(node.Words) == 0 {
		words = sh.State.Positional()
	} else {
		for _, w := range node.Words {
			fs, err := expand.Expand(w, sh.argCtx())
			if err != nil {
				return err
			}
			words = append(words, fs...)
		}
	}
	for _, w := range words {
		sh.State.Set(node.Var, w)
		if err := sh.exec(node.Body); err != nil {
			if c, ok := err.(control); ok {
				switch c.kind {
				case ctlBreak:
					if c.n > 1 {
						return control{kind: ctlBreak, n: c.n - 1}
					}
					return nil
				case ctlContinue:
					if c.n > 1 {
						return control{kind: ctlContinue, n: c.n - 1}
					}
					continue
				}
			}
			return err
		}
	}
	sh.State.LastStatus = 0
	return nil
}

func (sh *Shell) execCase(node *ast.Case) error {
	subject, err := expand.ExpandField(node.Subject, sh.noSplitCtx())
	if err != nil {
		return err
	}
	for _, cl := range node.Clauses {
		for _, pw := range cl.Patterns {
			pat, err := expand.ExpandField(pw, sh.noSplitCtx())
			if err != nil {
				return err
			}
			if pattern.Match(pat, subject) {
				if cl.Body == nil {
					sh.State.LastStatus = 0
					return nil
				}
				return sh.exec(cl.Body)
			}
		}
	}
	sh.State.LastStatus = 0
	return nil
}

func (sh *Shell) execSubshell(node *ast.Subshell) error {
	pop := sh.State.PushFrame(nil)
	defer pop()
	return sh.exec(node.Body)
}

// ExpandAssignmentValue expands an assignment's right-hand side word under
// no-split/no-glob rules (spec §4.4).
func (sh *Shell) ExpandAssignmentValue(w ast.Word) (string, error) {
	return expand.ExpandField(w, sh.noSplitCtx())
}
