// Package expand implements the single expander spec §4.4 calls for: a
// single pass over each AST Word, applied by the executor at the point of
// use rather than as a pre-pass over the whole tree. It performs brace
// expansion, tilde expansion, parameter/arithmetic/command substitution,
// field splitting on IFS, and pathname expansion, in that order.
package expand

import (
	"os"
	"os/user"
	"sort"
	"strconv"
	"strings"

	"git.sr.ht/~anton/crux/arith"
	"git.sr.ht/~anton/crux/ast"
	"git.sr.ht/~anton/crux/pkg/stringsx"
	"git.sr.ht/~anton/crux/state"
)

// Capture runs src (the text inside $(...) or `...`) as a shell command
// list and returns its captured, trailing-newline-stripped standard output
// plus its exit status. The expander never executes commands itself; it is
// handed this callback so that package expand does not import package exec
// (which itself must call into the expander to materialize argv words).
type Capture func(src string) (stdout string, status int, err error)

// Context carries everything a single Expand call needs besides the word
// itself: the variable/function state to read from, the IFS to split on,
// and whether this call site permits splitting/globbing at all (spec
// §4.4's "targeted entry points for contexts that forbid splitting").
type Context struct {
	State   *state.ShellState
	Capture Capture
	Split   bool // apply IFS word-splitting to unquoted expansions
	Glob    bool // apply pathname expansion to the resulting fields
}

// ArgContext is the common case: a command argument or for-word, which
// splits and globs.
func ArgContext(s *state.ShellState, cap Capture) Context {
	return Context{State: s, Capture: cap, Split: true, Glob: true}
}

// NoSplitContext is for assignment right-hand sides, case subjects, and
// other positions where the result must stay a single field (spec §4.4).
func NoSplitContext(s *state.ShellState, cap Capture) Context {
	return Context{State: s, Capture: cap, Split: false, Glob: false}
}

// wordPart is one contiguous run of a word's expansion result, tagged with
// whether it is eligible for IFS splitting and pathname globbing. Adjacent
// literal/quoted text glues onto the edges of a split-eligible run exactly
// as in every other POSIX-family shell.
type wordPart struct {
	text       string
	splittable bool
}

// Expand is the general entry point: brace expansion can multiply one word
// into several, each of which is then independently substituted, split,
// and globbed.
func Expand(w ast.Word, ctx Context) ([]string, error) {
	var alts []string
	if w.Quoting == ast.Unquoted {
		alts = expandBraces(w.Value)
	} else {
		alts = []string{w.Value}
	}

	var fields []string
	for _, alt := range alts {
		altWord := w
		if len(alts) > 1 || alt != w.Value {
			altWord = rebuildWord(w, alt)
		}
		fs, err := expandOne(altWord, ctx)
		if err != nil {
			return nil, err
		}
		fields = append(fields, fs...)
	}
	return fields, nil
}

// ExpandField expands w and requires exactly one resulting field,
// collapsing splitting (spec's no-split contexts: assignment RHS, case
// subject, redirection targets, double-quoted interiors).
func ExpandField(w ast.Word, ctx Context) (string, error) {
	c := ctx
	c.Split = false
	c.Glob = false
	fs, err := expandOne(w, c)
	if err != nil {
		return "", err
	}
	return strings.Join(fs, ""), nil
}

// rebuildWord re-derives a Word's segment structure after brace expansion
// has substituted literal text into the lexeme. Brace expansion only fires
// on wholly-unquoted words, so the rebuilt word is a single unquoted
// segment.
func rebuildWord(orig ast.Word, lexeme string) ast.Word {
	return ast.Word{
		Lexeme:   lexeme,
		Value:    lexeme,
		Quoting:  orig.Quoting,
		Segments: []ast.Segment{{Text: lexeme, Quoting: orig.Quoting}},
	}
}

func expandOne(w ast.Word, ctx Context) ([]string, error) {
	segs := w.Segments
	if len(segs) == 0 {
		segs = []ast.Segment{{Text: w.Value, Quoting: w.Quoting}}
	}

	var parts []wordPart
	for _, seg := range segs {
		text := seg.Text
		if seg.Quoting == ast.Unquoted {
			text = expandTilde(text, ctx.State)
		}
		if seg.Quoting == ast.SingleQuoted {
			parts = append(parts, wordPart{text: text, splittable: false})
			continue
		}
		for _, p := range tokenizePieces(text) {
			sp, err := expandPiece(p, ctx)
			if err != nil {
				return nil, err
			}
			splittable := ctx.Split && seg.Quoting != ast.DoubleQuoted && p.kind != pLiteral
			parts = append(parts, wordPart{text: sp, splittable: splittable})
		}
	}

	fields := joinParts(parts, ifsOf(ctx.State))
	if !ctx.Glob {
		return fields, nil
	}
	var out []string
	for _, f := range fields {
		matches := globField(f)
		out = append(out, matches...)
	}
	return out, nil
}

func ifsOf(s *state.ShellState) string {
	if s == nil {
		return " \t\n"
	}
	if v, ok := s.Get("IFS"); ok {
		return v
	}
	return " \t\n"
}

// joinParts implements POSIX field splitting with adjacent literal text
// glued onto the first/last field of whatever a splittable part expands
// into — the same algorithm every IFS-splitting shell uses so that, e.g.,
// `a${x}b` with x="1 2 3" unquoted yields the fields a1, 2, 3b.
func joinParts(parts []wordPart, ifs string) []string {
	fields := []string{""}
	touchedSplit := false
	for _, p := range parts {
		if !p.splittable {
			fields[len(fields)-1] += p.text
			continue
		}
		touchedSplit = true
		toks := splitIFS(p.text, ifs)
		if len(toks) == 0 {
			continue
		}
		fields[len(fields)-1] += toks[0]
		fields = append(fields, toks[1:]...)
	}
	if touchedSplit && len(fields) == 1 && fields[0] == "" {
		return nil
	}
	return fields
}

// splitIFS splits s on runs of IFS characters, trimming leading/trailing
// runs, matching the common case of IFS made up entirely of whitespace
// (spec §4.4's default `" \t\n"`). Shells distinguish IFS-whitespace from
// other IFS characters so that e.g. IFS=":" splits "a::b" into three
// fields; crux does not make that distinction and always collapses runs,
// which only differs from POSIX when IFS contains a non-whitespace
// character (recorded as an Open Question).
//
// The actual cut points are found by stringsx.SplitMulti (grounded on the
// teacher's pkg/stringsx package), treating each IFS rune as its own
// one-rune separator; the empty tokens SplitMulti leaves between adjacent
// separators are then dropped, which is what collapses a run into a single
// split point.
func splitIFS(s, ifs string) []string {
	if ifs == "" {
		if s == "" {
			return nil
		}
		return []string{s}
	}

	seps := make([]string, 0, len(ifs))
	for _, r := range ifs {
		seps = append(seps, string(r))
	}

	toks := stringsx.SplitMulti(s, seps)
	out := toks[:0]
	for _, tok := range toks {
		if tok != "" {
			out = append(out, tok)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func expandPiece(p piece, ctx Context) (string, error) {
	switch p.kind {
	case pLiteral:
		return p.text, nil
	case pArith:
		expanded, err := expandEmbedded(p.text, ctx)
		if err != nil {
			return "", err
		}
		if ctx.State != nil {
			if n, ok := ctx.State.CachedArith(expanded); ok {
				return strconv.FormatInt(n, 10), nil
			}
		}
		n, err := arith.Eval(expanded, stateVars{ctx.State})
		if err != nil {
			return "", err
		}
		if ctx.State != nil {
			ctx.State.StoreArith(expanded, n)
		}
		return strconv.FormatInt(n, 10), nil
	case pCmdSub:
		if ctx.Capture == nil {
			return "", nil
		}
		out, _, err := ctx.Capture(p.text)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(out, "\n"), nil
	case pParam:
		return expandParam(p.text, ctx)
	}
	return "", nil
}

// expandEmbedded re-runs substitution (but not splitting/globbing/brace
// expansion) over text that itself came from inside a `$((...))` or
// `${...}` construct, e.g. `$((x + $(echo 1)))`.
func expandEmbedded(text string, ctx Context) (string, error) {
	var b strings.Builder
	for _, p := range tokenizePieces(text) {
		s, err := expandPiece(p, ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

type stateVars struct{ s *state.ShellState }

func (v stateVars) Get(name string) (string, bool) {
	if v.s == nil {
		return "", false
	}
	return v.s.Get(name)
}

func (v stateVars) Set(name, value string) {
	if v.s != nil {
		v.s.Set(name, value)
	}
}

func expandTilde(text string, s *state.ShellState) string {
	if !strings.HasPrefix(text, "~") {
		return text
	}
	end := strings.IndexAny(text, "/")
	var name string
	var rest string
	if end < 0 {
		name = text[1:]
		rest = ""
	} else {
		name = text[1:end]
		rest = text[end:]
	}
	var home string
	if name == "" {
		if s != nil {
			if v, ok := s.Get("HOME"); ok {
				home = v
			}
		}
		if home == "" {
			home = os.Getenv("HOME")
		}
	} else if u, err := user.Lookup(name); err == nil {
		home = u.HomeDir
	} else {
		return text // unknown user: left unexpanded, per POSIX
	}
	return home + rest
}

func globField(f string) []string {
	if !strings.ContainsAny(f, "*?[") {
		return []string{f}
	}
	matches, err := globPattern(f)
	if err != nil || len(matches) == 0 {
		return []string{f} // no match: pattern passes through literally
	}
	sort.Strings(matches)
	return matches
}
