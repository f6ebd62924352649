// Package lexer implements the character-classifying tokenizer described in
// spec §4.1. It is a direct DFA over input bytes, modeled as a chain of
// Pike-style state functions the way git.sr.ht/~mango/andy's lexer is, but
// extended to carry quote provenance per word and to support resumable
// lexing across chunks fed by an interactive caller.
package lexer

import (
	"strings"
	"unicode/utf8"

	"git.sr.ht/~anton/crux/token"
)

const eof rune = -1

// stateFn is one state in the DFA; it consumes zero or more runes and
// returns the next state, or nil at EOF or on a fatal error.
type stateFn func(*Lexer) stateFn

// Lexer tokenizes shell source text. Resumable controls whether an
// unterminated quote or construct is reported as IncompleteInput (caller
// should supply more text) or as a hard LexError.
type Lexer struct {
	input     string
	start     int // start of the token/segment currently being scanned
	pos       int // scan cursor
	width     int // width in bytes of the last rune returned by next()
	line, col int // line/column of the scan cursor, moved by next and backup

	Resumable bool
	Out       chan token.Token

	// StrictEscapes is not read by any state function: whatever its value,
	// an unquoted backslash drops itself and passes the following character
	// through literally, and no escape is rejected.
	StrictEscapes bool

	// segs accumulates the pieces of the WORD currently being built so that
	// mixed-quote provenance (a"b"'c') can be reconstructed at emit time.
	segs    []token.Segment
	segBuf  strings.Builder
	segKind token.Quoting
	segSet  bool

	quoteDepth int // unused; $( / $(( nesting is counted locally by balance in states.go
	err        error
}

// New creates a Lexer over input. Run drives it to completion; tokens are
// delivered on Out, which is closed when lexing finishes (successfully or
// not). On a LexError or IncompleteInput no EOF token is sent: Out is
// closed right away (a receive then yields the zero Token, whose Kind is
// EOF) and the error is surfaced to the caller via Err after Run returns.
func New(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
		col:   1,
		Out:   make(chan token.Token),
	}
}

// Run drives the state machine until input is exhausted, sending each token
// to Out and closing it on completion. Intended to run in its own goroutine,
// mirroring the teacher's `go l.Run()` convention.
func (l *Lexer) Run() {
	for state := lexDefault; state != nil; {
		state = state(l)
	}
	close(l.Out)
}

// Err returns the terminal lexing error, if lexing stopped early.
func (l *Lexer) Err() error { return l.err }

func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += w
	l.width = w
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) peek() rune {
	// At EOF next() would zero width, and a later backup() of the rune
	// before it would then move nothing.
	if l.pos >= len(l.input) {
		return eof
	}
	r := l.next()
	l.backup()
	return r
}

func (l *Lexer) peekAt(offset int) rune {
	p := l.pos
	for i := 0; i < offset; i++ {
		if p >= len(l.input) {
			return eof
		}
		_, w := utf8.DecodeRuneInString(l.input[p:])
		p += w
	}
	if p >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[p:])
	return r
}

func (l *Lexer) backup() {
	l.pos -= l.width
	if l.width > 0 && l.input[l.pos] == '\n' {
		l.line--
	} else {
		l.col--
	}
}

func (l *Lexer) hasPrefix(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

func (l *Lexer) pposition() token.Position {
	return token.Position{Offset: l.start, Line: l.line, Col: l.col}
}

func (l *Lexer) emitKind(k token.Kind, op token.Operator) {
	l.Out <- token.Token{
		Kind:   k,
		Lexeme: string(op),
		Value:  string(op),
		Pos:    l.pposition(),
	}
	l.start = l.pos
}

func (l *Lexer) emitNewline() {
	l.Out <- token.Token{Kind: token.NEWLINE, Lexeme: "\n", Pos: l.pposition()}
	l.start = l.pos
}

func (l *Lexer) emitEOF() {
	l.Out <- token.Token{Kind: token.EOF, Pos: l.pposition()}
	l.start = l.pos
}

// fail records a terminal error. If resumable and the reason is one that a
// continuation could resolve (unterminated quote/construct), it is reported
// as IncompleteInput; otherwise it is a hard LexError. Either way lexing
// stops: fail returns nil so Run's loop terminates.
func (l *Lexer) fail(resumableReason, hardReason string) stateFn {
	if l.Resumable {
		l.err = IncompleteInput{Reason: resumableReason}
	} else {
		l.err = LexError{Reason: hardReason, Pos: l.start}
	}
	return nil
}

// --- word segment accumulation ---

func (l *Lexer) startSegment(k token.Quoting) {
	if l.segSet && l.segKind != k {
		l.flushSegment()
	}
	l.segKind = k
	l.segSet = true
}

func (l *Lexer) writeSeg(r rune) {
	l.segBuf.WriteRune(r)
}

func (l *Lexer) writeSegStr(s string) {
	l.segBuf.WriteString(s)
}

func (l *Lexer) flushSegment() {
	if l.segBuf.Len() == 0 && !l.segSet {
		return
	}
	l.segs = append(l.segs, token.Segment{Text: l.segBuf.String(), Quoting: l.segKind})
	l.segBuf.Reset()
	l.segSet = false
}

// emitWord finalizes the word currently being accumulated via
// startSegment/writeSeg and sends it as a WORD token, with Quoting set to
// the single segment kind or Mixed if more than one kind of segment
// contributed.
func (l *Lexer) emitWord(lexeme string) {
	l.flushSegment()

	var value strings.Builder
	q := token.Unquoted
	switch len(l.segs) {
	case 0:
		q = token.Unquoted
	case 1:
		q = l.segs[0].Quoting
	default:
		q = token.Mixed
	}
	for _, s := range l.segs {
		value.WriteString(s.Text)
	}

	tok := token.Token{
		Kind:    token.WORD,
		Lexeme:  lexeme,
		Value:   value.String(),
		Quoting: q,
		Pos:     l.pposition(),
	}
	if q == token.Mixed {
		tok.Segments = append([]token.Segment(nil), l.segs...)
	}
	l.Out <- tok

	l.segs = l.segs[:0]
	l.start = l.pos
}
