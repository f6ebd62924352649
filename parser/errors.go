package parser

import (
	"fmt"

	"git.sr.ht/~anton/crux/token"
)

// ParseError is a grammar violation; it carries the position and a
// human-readable description of what was expected (spec §7).
type ParseError struct {
	Pos      token.Position
	Expected string
	Got      token.Token
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Pos, e.Expected, e.Got)
}

// IncompleteInput mirrors lexer.IncompleteInput at the grammar level: an
// open if/while/case/brace construct, or a trailing &&/||/| /line
// continuation, that a continuation chunk could close. See spec §4.3, §9.
type IncompleteInput struct {
	Open string // what's unterminated, e.g. "if", "case", "{"
}

func (e IncompleteInput) Error() string {
	return fmt.Sprintf("incomplete input: unterminated %q", e.Open)
}

// isSyncToken reports whether t is in the recovery set of spec §4.2/§4.3.
// No grammar rule calls it: an unexpected token ends the parse with an
// error instead of skipping forward to one of these tokens.
func isSyncToken(t token.Token) bool {
	if t.Kind == token.NEWLINE || t.Kind == token.EOF {
		return true
	}
	if t.Kind == token.OPERATOR && token.Operator(t.Lexeme) == token.Semi {
		return true
	}
	if t.Kind == token.WORD && t.Quoting == token.Unquoted {
		switch t.Value {
		case "fi", "done", "esac":
			return true
		}
	}
	return false
}
