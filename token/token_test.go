package token_test

import (
	"testing"

	"git.sr.ht/~anton/crux/token"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "EOF", token.EOF.String())
	assert.Equal(t, "newline", token.NEWLINE.String())
	assert.Equal(t, "word", token.WORD.String())
	assert.Equal(t, "keyword", token.KEYWORD.String())
	assert.Equal(t, "operator", token.OPERATOR.String())
}

func TestQuotingString(t *testing.T) {
	assert.Equal(t, "unquoted", token.Unquoted.String())
	assert.Equal(t, "single-quoted", token.SingleQuoted.String())
	assert.Equal(t, "double-quoted", token.DoubleQuoted.String())
	assert.Equal(t, "mixed", token.Mixed.String())
}

func TestPositionString(t *testing.T) {
	p := token.Position{Offset: 12, Line: 2, Col: 5}
	assert.Equal(t, "2:5", p.String())
}

func TestTokenStringUsesLexemeForWords(t *testing.T) {
	tok := token.Token{Kind: token.WORD, Lexeme: `"a b"`, Value: "a b"}
	assert.Equal(t, `"a b"`, tok.String())
}

func TestTokenStringSpecialCases(t *testing.T) {
	assert.Equal(t, "EOF", token.Token{Kind: token.EOF}.String())
	assert.Equal(t, "newline", token.Token{Kind: token.NEWLINE}.String())
}

func TestKeywordsSet(t *testing.T) {
	for _, kw := range []string{"if", "then", "else", "elif", "fi", "for", "in",
		"while", "until", "do", "done", "case", "esac", "function", "{", "}", "!"} {
		assert.True(t, token.Keywords[kw], "expected %q to be a keyword", kw)
	}
	assert.False(t, token.Keywords["echo"])
}
