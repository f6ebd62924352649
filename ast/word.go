package ast

import "git.sr.ht/~anton/crux/token"

// NewWord converts a lexer token into an ast.Word, carrying its quote
// provenance across the lexer/parser boundary unchanged (spec §3.3).
func NewWord(t token.Token) Word {
	w := Word{Lexeme: t.Lexeme, Value: t.Value, Quoting: Quoting(t.Quoting)}
	if t.Quoting == token.Mixed {
		w.Segments = make([]Segment, len(t.Segments))
		for i, s := range t.Segments {
			w.Segments[i] = Segment{Text: s.Text, Quoting: Quoting(s.Quoting)}
		}
	}
	return w
}
