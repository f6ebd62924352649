package lexer

import (
	"unicode"

	"git.sr.ht/~anton/crux/token"
)

var escapes = map[rune]rune{
	'\\': '\\', 'n': '\n', 't': '\t', 'r': '\r', '"': '"', '\'': '\'', '$': '$', '`': '`',
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t'
}

func isWordTerminator(r rune) bool {
	return r == eof || r == '\n' || r == ';' || isWhitespace(r) || isOperatorStart(r)
}

func isOperatorStart(r rune) bool {
	switch r {
	case '|', '&', ';', '(', ')', '<', '>':
		return true
	}
	return false
}

// lexDefault is the lexer's entry state: it skips whitespace, dispatches
// comments, line continuations, operators and newlines, and otherwise hands
// off to lexWord. See spec §4.1.
func lexDefault(l *Lexer) stateFn {
	for {
		l.start = l.pos
		r := l.next()
		switch {
		case r == eof:
			l.emitEOF()
			return nil
		case r == '\\' && l.peek() == '\n':
			l.next() // consume the line continuation silently
			if l.Resumable && l.pos >= len(l.input) {
				return l.fail("trailing line continuation", "trailing line continuation")
			}
		case r == '\n':
			l.emitNewline()
		case r == ';':
			if l.peek() == ';' {
				l.next()
				l.emitKind(token.OPERATOR, token.SemiSemi)
			} else {
				l.emitKind(token.OPERATOR, token.Semi)
			}
		case r == '#':
			l.skipComment()
		case isWhitespace(r):
			// consumed, never tokenized
		case r == '|':
			switch l.peek() {
			case '|':
				l.next()
				l.emitKind(token.OPERATOR, token.Or)
			case '&':
				l.next()
				l.emitKind(token.OPERATOR, token.PipeAmp)
			default:
				l.emitKind(token.OPERATOR, token.Pipe)
			}
		case r == '&':
			switch l.peek() {
			case '&':
				l.next()
				l.emitKind(token.OPERATOR, token.And)
			case '>':
				l.next()
				l.emitKind(token.OPERATOR, token.AmpGreat)
			default:
				l.emitKind(token.OPERATOR, token.Amp)
			}
		case r == '(':
			l.emitKind(token.OPERATOR, token.LParen)
		case r == ')':
			l.emitKind(token.OPERATOR, token.RParen)
		case r == '<':
			switch l.peek() {
			case '<':
				l.next()
				l.emitKind(token.OPERATOR, token.DLess)
			case '&':
				l.next()
				l.emitKind(token.OPERATOR, token.LessAmp)
			default:
				l.emitKind(token.OPERATOR, token.Less)
			}
		case r == '>':
			switch l.peek() {
			case '>':
				l.next()
				l.emitKind(token.OPERATOR, token.DGreat)
			case '&':
				l.next()
				l.emitKind(token.OPERATOR, token.GreatAmp)
			default:
				l.emitKind(token.OPERATOR, token.Great)
			}
		case unicode.IsDigit(r) && (l.peek() == '>' || l.peek() == '<'):
			// A leading digit directly followed by a redirection operator is
			// the fd prefix (2>, 2>>, 2>&1, …); lexWord ends the word at the
			// operator, so the digit comes out as its own WORD and the parser
			// pairs it with the operator that follows.
			l.backup()
			return lexWord
		default:
			l.backup()
			return lexWord
		}
	}
}

func (l *Lexer) skipComment() {
	for {
		r := l.next()
		if r == eof {
			l.backup()
			return
		}
		if r == '\n' {
			l.backup()
			return
		}
	}
}

// lexWord accumulates a WORD token: unquoted runs, single- and
// double-quoted segments abutted with no intervening whitespace all
// concatenate into one word, tagged Mixed if more than one quoting kind
// contributed. See spec §4.1's quote provenance rule.
func lexWord(l *Lexer) stateFn {
	wordStart := l.pos
	for {
		r := l.peek()
		switch {
		case r == eof || r == '\n' || r == ';' || isWhitespace(r) || isOperatorStart(r):
			l.emitWord(l.input[wordStart:l.pos])
			return lexDefault
		case r == '\'':
			if err := l.lexSingleQuoted(); err != nil {
				return l.fail("unterminated single-quoted string", "unterminated single-quoted string")
			}
		case r == '"':
			if err := l.lexDoubleQuoted(); err != nil {
				return l.fail("unterminated double-quoted string", "unterminated double-quoted string")
			}
		case r == '\\':
			l.next()
			esc := l.next()
			if esc == eof {
				return l.fail("unterminated escape", "trailing backslash")
			}
			l.startSegment(token.Unquoted)
			l.writeSeg(esc)
		case r == '$':
			if err := l.lexDollarUnquoted(); err != nil {
				return l.fail("unterminated $( or $(( construct", err.Error())
			}
		case r == '`':
			if err := l.lexBacktick(); err != nil {
				return l.fail("unterminated backtick command substitution", err.Error())
			}
		default:
			l.next()
			l.startSegment(token.Unquoted)
			l.writeSeg(r)
		}
	}
}

type lexErr string

func (e lexErr) Error() string { return string(e) }

// lexSingleQuoted consumes '...' verbatim (no escapes at all) into the
// current segment set as a SingleQuoted segment.
func (l *Lexer) lexSingleQuoted() error {
	l.next() // consume opening '
	l.startSegment(token.SingleQuoted)
	for {
		r := l.next()
		switch r {
		case eof:
			return lexErr("eof")
		case '\'':
			l.flushSegment()
			return nil
		default:
			l.writeSeg(r)
		}
	}
}

// lexDoubleQuoted consumes "..." allowing $…, $(…), $((…)), backtick, and
// the \$ \" \\ \` escapes; any other backslash is literal backslash+char.
func (l *Lexer) lexDoubleQuoted() error {
	l.next() // consume opening "
	l.startSegment(token.DoubleQuoted)
	for {
		r := l.next()
		switch r {
		case eof:
			return lexErr("eof")
		case '"':
			l.flushSegment()
			return nil
		case '\\':
			nxt := l.peek()
			switch nxt {
			case '$', '"', '\\', '`':
				l.next()
				l.writeSeg(nxt)
			default:
				l.writeSeg('\\')
			}
		case '$':
			l.backup()
			raw, err := l.scanDollar()
			if err != nil {
				return err
			}
			l.writeSegStr(raw)
		case '`':
			l.backup()
			raw, err := l.scanBacktick()
			if err != nil {
				return err
			}
			l.writeSegStr(raw)
		default:
			l.writeSeg(r)
		}
	}
}

// lexDollarUnquoted handles a $ encountered in unquoted context: the whole
// construct ($var, ${...}, $(...), $((...))) is passed through verbatim as
// part of the WORD, for the expander to interpret later (spec §4.1: "$ and
// ` inside a WORD do not split it").
func (l *Lexer) lexDollarUnquoted() error {
	raw, err := l.scanDollar()
	if err != nil {
		return err
	}
	l.startSegment(token.Unquoted)
	l.writeSegStr(raw)
	return nil
}

func (l *Lexer) lexBacktick() error {
	raw, err := l.scanBacktick()
	if err != nil {
		return err
	}
	l.startSegment(token.Unquoted)
	l.writeSegStr(raw)
	return nil
}

// scanDollar scans a $ construct starting at the current position
// (l.peek() == '$') and returns its raw source text, including the
// opening $. $(( … )) and $( … ) are told apart by the opening parens
// only; both are closed by counting ( and ) (balance), which does not check
// that the two closing parens of $(( … )) are adjacent. { } is balanced for
// ${ … }, and ( ) for $( … ) including nested command substitutions.
func (l *Lexer) scanDollar() (string, error) {
	start := l.pos
	l.next() // consume '$'

	switch l.peek() {
	case '(':
		l.next()
		if l.peek() == '(' {
			l.next()
			if err := l.balance('(', ')', 2); err != nil {
				return "", err
			}
			return l.input[start:l.pos], nil
		}
		if err := l.balance('(', ')', 1); err != nil {
			return "", err
		}
		return l.input[start:l.pos], nil
	case '{':
		l.next()
		if err := l.balanceBrace(); err != nil {
			return "", err
		}
		return l.input[start:l.pos], nil
	default:
		// bare $name / $0-9 / $@ / $* / $# / $? / $$ / $! / $-
		if r := l.peek(); r == eof {
			return l.input[start:l.pos], nil
		}
		for isRefChar(l.peek()) {
			l.next()
		}
		if l.pos == start+1 {
			// a lone '$' followed by a non-identifier special parameter char
			if r := l.peek(); r != eof {
				l.next()
			}
		}
		return l.input[start:l.pos], nil
	}
}

func isRefChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// balance consumes runes until `depth` nested `open` have each been matched
// by a `close`, having already consumed the first `open`. Used for $( … )
// (depth 1) and $(( … )) (depth 2); it only counts, so the two closing
// parens of $(( … )) need not be adjacent.
func (l *Lexer) balance(open, close rune, depth int) error {
	remaining := depth
	for {
		r := l.next()
		switch r {
		case eof:
			return lexErr("unterminated construct")
		case '\'':
			l.backup()
			if err := l.skipSingleQuotedRaw(); err != nil {
				return err
			}
		case '"':
			l.backup()
			if err := l.skipDoubleQuotedRaw(); err != nil {
				return err
			}
		case open:
			remaining++
		case close:
			remaining--
			if remaining == 0 {
				return nil
			}
		}
	}
}

func (l *Lexer) balanceBrace() error {
	depth := 1
	for {
		r := l.next()
		switch r {
		case eof:
			return lexErr("unterminated ${")
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
}

func (l *Lexer) skipSingleQuotedRaw() error {
	l.next()
	for {
		r := l.next()
		if r == eof {
			return lexErr("unterminated string")
		}
		if r == '\'' {
			return nil
		}
	}
}

func (l *Lexer) skipDoubleQuotedRaw() error {
	l.next()
	for {
		r := l.next()
		switch r {
		case eof:
			return lexErr("unterminated string")
		case '\\':
			l.next()
		case '"':
			return nil
		}
	}
}

// scanBacktick scans a `...` construct, honoring \` \\ \$ escapes inside,
// and returns its raw source including the backticks.
func (l *Lexer) scanBacktick() (string, error) {
	start := l.pos
	l.next() // consume opening `
	for {
		r := l.next()
		switch r {
		case eof:
			return "", lexErr("unterminated backtick command substitution")
		case '\\':
			if nxt := l.peek(); nxt == '`' || nxt == '\\' || nxt == '$' {
				l.next()
			}
		case '`':
			return l.input[start:l.pos], nil
		}
	}
}
