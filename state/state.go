// Package state holds the explicit ShellState the spec's design notes call
// for (§9: "the source's 'SHELL context object' is replaced by an explicit
// ShellState passed by reference to the executor") in place of the
// teacher's package-level globals (andy's vm/vars.VarTable, vm.Status).
package state

import (
	"os"

	"git.sr.ht/~anton/crux/ast"
	"git.sr.ht/~anton/crux/pkg/stack"
)

// Variable is one shell variable: a scalar string value plus whether it is
// marked for export to child processes.
type Variable struct {
	Value    string
	Exported bool
}

// Scope is one frame of the variable-scope stack (spec §3.4): the global
// frame, a function-call frame, or a one-statement command-local prefix
// frame.
type Scope struct {
	vars       map[string]*Variable
	positional []string
}

func newScope() *Scope {
	return &Scope{vars: make(map[string]*Variable)}
}

// ShellState is the single mutable object the executor, expander, and
// built-ins all operate through. It owns the variable scope stack, the
// function table, the last exit status, positional parameters, and option
// flags (spec §9's "Global mutable state" note).
type ShellState struct {
	scopes stack.Stack[*Scope]

	Functions map[string]*ast.Function

	LastStatus int
	ScriptName string
	PID        int
	LastBgPID  int
	PipeFail   bool
	Options    map[byte]bool

	// Generation increments on every variable write and is used by the
	// expander's read/arithmetic cache to invalidate itself (spec §4.4:
	// "invalidated whenever any variable is written").
	Generation uint64

	varCache      map[string]cacheEntry
	varCacheGen   uint64
	arithCache    map[string]int64
	arithCacheGen uint64
}

// cacheEntry is one memoized Get result (spec §4.4's "variable-read cache
// keyed by name").
type cacheEntry struct {
	value string
	set   bool
}

// New creates a ShellState with one global scope, environment variables
// imported as exported shell variables, scriptName as $0 and the given
// script arguments bound as $1.. (spec §6.1).
func New(scriptName string, args []string) *ShellState {
	s := &ShellState{
		Functions: make(map[string]*ast.Function),
		ScriptName: scriptName,
		PID:        os.Getpid(),
		Options:    make(map[byte]bool),
	}
	g := newScope()
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				g.vars[kv[:i]] = &Variable{Value: kv[i+1:], Exported: true}
				break
			}
		}
	}
	g.positional = append([]string(nil), args...)
	s.scopes.Push(g)
	return s
}

func (s *ShellState) top() *Scope {
	return *s.scopes.Peek()
}

// PushFrame pushes a new, empty variable scope (a function call or a
// command-local assignment prefix) and returns a function to pop it.
func (s *ShellState) PushFrame(positional []string) func() {
	f := newScope()
	if positional != nil {
		f.positional = positional
	}
	s.scopes.Push(f)
	return func() {
		s.scopes.Pop()
		s.Generation++ // the popped frame's bindings may sit in the read cache
	}
}

// Get looks up name in the current frame, then falls through enclosing
// frames down to global (spec §3.4's scope stack), consulting the
// generation-stamped read cache first. A stale cache (one stamped with an
// older Generation than the current one) is dropped wholesale rather than
// checked entry by entry, since any write anywhere invalidates every name,
// not just the one written (spec §4.4: "invalidated whenever any variable
// is written").
func (s *ShellState) Get(name string) (string, bool) {
	if s.varCacheGen != s.Generation {
		s.varCache = nil
		s.varCacheGen = s.Generation
	}
	if e, ok := s.varCache[name]; ok {
		return e.value, e.set
	}

	var value string
	var set bool
	if v := s.lookup(name); v != nil {
		value, set = v.Value, true
	}

	if s.varCache == nil {
		s.varCache = make(map[string]cacheEntry)
	}
	s.varCache[name] = cacheEntry{value: value, set: set}
	return value, set
}

// CachedArith returns expr's previously computed value if no variable has
// been written since, implementing spec §4.4's "arithmetic-expression
// cache keyed by the pre-expanded source string".
func (s *ShellState) CachedArith(expr string) (int64, bool) {
	if s.arithCacheGen != s.Generation {
		s.arithCache = nil
		s.arithCacheGen = s.Generation
	}
	v, ok := s.arithCache[expr]
	return v, ok
}

// StoreArith records expr's result for CachedArith to find, stamped with
// the generation as of right now (which may have advanced past what it was
// when expr started evaluating, if expr itself assigned a variable).
func (s *ShellState) StoreArith(expr string, v int64) {
	if s.arithCacheGen != s.Generation {
		s.arithCache = nil
		s.arithCacheGen = s.Generation
	}
	if s.arithCache == nil {
		s.arithCache = make(map[string]int64)
	}
	s.arithCache[expr] = v
}

func (s *ShellState) lookup(name string) *Variable {
	frames := s.scopes.Slice()
	for i := len(frames) - 1; i >= 0; i-- {
		if v, ok := frames[i].vars[name]; ok {
			return v
		}
	}
	return nil
}

// Set writes name in the current (topmost) frame only — "assignments
// without export affect the top scope only" (spec §4.5).
func (s *ShellState) Set(name, value string) {
	s.Generation++
	top := s.top()
	if v, ok := top.vars[name]; ok {
		v.Value = value
		return
	}
	top.vars[name] = &Variable{Value: value}
}

// SetGlobal writes directly into the global (bottom) frame, used for
// `export NAME=value` semantics that should be visible regardless of which
// frame is current.
func (s *ShellState) SetGlobal(name, value string, exported bool) {
	s.Generation++
	frames := s.scopes.Slice()
	g := frames[0]
	if v, ok := g.vars[name]; ok {
		v.Value = value
		v.Exported = v.Exported || exported
		return
	}
	g.vars[name] = &Variable{Value: value, Exported: exported}
}

// Export marks an existing variable (wherever it lives in the stack) for
// inheritance by child processes.
func (s *ShellState) Export(name string) {
	if v := s.lookup(name); v != nil {
		v.Exported = true
		return
	}
	s.Generation++
	s.top().vars[name] = &Variable{Exported: true}
}

// Unset removes name from whichever frame currently holds it.
func (s *ShellState) Unset(name string) {
	s.Generation++
	frames := s.scopes.Slice()
	for i := len(frames) - 1; i >= 0; i-- {
		if _, ok := frames[i].vars[name]; ok {
			delete(frames[i].vars, name)
			return
		}
	}
}

// Fork returns an independent copy of s for a pipeline stage (spec §5:
// pipeline stages run as concurrent, independent processes). Each scope is
// copied so that a stage's assignments, function definitions, and
// push/pop traffic never race with or leak into its siblings; Functions is
// shared since function bodies are immutable once registered (spec §3.4).
func (s *ShellState) Fork() *ShellState {
	frames := s.scopes.Slice()
	f := &ShellState{
		Functions:  s.Functions,
		LastStatus: s.LastStatus,
		ScriptName: s.ScriptName,
		PID:        s.PID,
		LastBgPID:  s.LastBgPID,
		PipeFail:   s.PipeFail,
		Options:    s.Options,
	}
	for _, sc := range frames {
		cp := &Scope{vars: make(map[string]*Variable, len(sc.vars))}
		for k, v := range sc.vars {
			vv := *v
			cp.vars[k] = &vv
		}
		if sc.positional != nil {
			cp.positional = append([]string(nil), sc.positional...)
		}
		f.scopes.Push(cp)
	}
	return f
}

// Positional returns the current frame's positional parameters, falling
// back to the global script arguments if the current frame never rebound
// them (i.e. we are not inside a function call).
func (s *ShellState) Positional() []string {
	frames := s.scopes.Slice()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].positional != nil {
			return frames[i].positional
		}
	}
	return nil
}

// SetPositional rebinds the current frame's positional parameters ($1..$N).
func (s *ShellState) SetPositional(args []string) {
	s.top().positional = append([]string(nil), args...)
}

// Environ returns the exported variables in NAME=value form, for handing to
// a spawned child process.
func (s *ShellState) Environ() []string {
	seen := make(map[string]bool)
	var out []string
	frames := s.scopes.Slice()
	for i := len(frames) - 1; i >= 0; i-- {
		for name, v := range frames[i].vars {
			if seen[name] {
				continue
			}
			seen[name] = true
			if v.Exported {
				out = append(out, name+"="+v.Value)
			}
		}
	}
	return out
}

// Flags renders the `$-` option-flag string (spec §6.1): the active option
// letters in a stable order.
func (s *ShellState) Flags() string {
	var b []byte
	for c := byte('a'); c <= 'z'; c++ {
		if s.Options[c] {
			b = append(b, c)
		}
	}
	return string(b)
}
