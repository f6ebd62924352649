package expand

import (
	"testing"

	"git.sr.ht/~anton/crux/ast"
	"git.sr.ht/~anton/crux/lexer"
	"git.sr.ht/~anton/crux/state"
	"git.sr.ht/~anton/crux/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// word lexes src and returns its first WORD token as an ast.Word, so test
// inputs carry the same quote provenance a real parse would produce instead
// of being hand-assembled and possibly wrong about it.
func word(t *testing.T, src string) ast.Word {
	t.Helper()
	l := lexer.New(src)
	go l.Run()
	for tok := range l.Out {
		if tok.Kind == token.WORD {
			return ast.NewWord(tok)
		}
	}
	t.Fatalf("no WORD token in %q", src)
	return ast.Word{}
}

func noCapture(string) (string, int, error) { return "", 0, nil }

func TestExpandParameterDefault(t *testing.T) {
	s := state.New("test", nil)
	ctx := ArgContext(s, noCapture)

	got, err := ExpandField(word(t, "${unset:-fallback}"), ctx)
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
}

func TestExpandParameterAssignDefault(t *testing.T) {
	s := state.New("test", nil)
	ctx := ArgContext(s, noCapture)

	got, err := ExpandField(word(t, "${x:=set}"), ctx)
	require.NoError(t, err)
	assert.Equal(t, "set", got)

	v, _ := s.Get("x")
	assert.Equal(t, "set", v, ":= did not write back")
}

func TestExpandParameterSuffixStrip(t *testing.T) {
	s := state.New("test", nil)
	s.Set("f", "file.tar.gz")
	ctx := ArgContext(s, noCapture)

	got, err := ExpandField(word(t, "${f%.*}"), ctx)
	require.NoError(t, err)
	assert.Equal(t, "file.tar", got)

	got, err = ExpandField(word(t, "${f%%.*}"), ctx)
	require.NoError(t, err)
	assert.Equal(t, "file", got)
}

func TestExpandArithmetic(t *testing.T) {
	s := state.New("test", nil)
	ctx := ArgContext(s, noCapture)

	got, err := ExpandField(word(t, "$((2 + 3 * 4))"), ctx)
	require.NoError(t, err)
	assert.Equal(t, "14", got)
}

func TestExpandWordSplitting(t *testing.T) {
	s := state.New("test", nil)
	s.Set("x", "1 2 3")
	ctx := ArgContext(s, noCapture)

	fields, err := Expand(word(t, "a${x}b"), ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "2", "3b"}, fields)
}

func TestExpandEmptyUnquotedVanishes(t *testing.T) {
	s := state.New("test", nil)
	s.Set("x", "")
	ctx := ArgContext(s, noCapture)

	fields, err := Expand(word(t, "$x"), ctx)
	require.NoError(t, err)
	assert.Empty(t, fields, "expected the word to vanish entirely")
}

func TestExpandQuotedEmptyStaysAField(t *testing.T) {
	s := state.New("test", nil)
	ctx := ArgContext(s, noCapture)

	fields, err := Expand(word(t, `""`), ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, fields)
}

func TestExpandBraces(t *testing.T) {
	s := state.New("test", nil)
	ctx := ArgContext(s, noCapture)

	fields, err := Expand(word(t, "a{1..3}b"), ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1b", "a2b", "a3b"}, fields)
}

func TestExpandSingleQuotedPassesThroughMetachars(t *testing.T) {
	s := state.New("test", nil)
	ctx := ArgContext(s, noCapture)

	got, err := ExpandField(word(t, `'$x*[a]'`), ctx)
	require.NoError(t, err)
	assert.Equal(t, "$x*[a]", got, "no metacharacter should have been interpreted")
}

func TestSplitIFSCollapsesRuns(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitIFS("a   b", " \t\n"))
	assert.Equal(t, []string{"a", "b"}, splitIFS("  a b  ", " \t\n"))
	assert.Nil(t, splitIFS("", " \t\n"))
}
