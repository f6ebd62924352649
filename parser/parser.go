// Package parser implements the rule-driven recursive-descent grammar of
// spec §4.3: tokens -> AST, with a resumable mode for interactive sessions
// building multi-line constructs incrementally.
package parser

import (
	"git.sr.ht/~anton/crux/ast"
	"git.sr.ht/~anton/crux/lexer"
	"git.sr.ht/~anton/crux/pkg/stack"
	"git.sr.ht/~anton/crux/token"
)

// Parser drives single-shot or resumable parsing. Resumable mode
// accumulates raw source across Feed calls and reparses the whole buffer
// each time; per spec §8 this trivially satisfies the round-trip invariant
// ("concatenating all chunks and reparsing in single-shot mode yields the
// same AST as the accumulated resumable parse") since that is exactly what
// happens on every call.
type Parser struct {
	buf       string
	Resumable bool
}

func New() *Parser { return &Parser{} }

// ParseProgram is the single-shot entry point: a complete program is
// expected. An open compound construct or a trailing &&/||/| at the end is
// returned as an IncompleteInput error and an unterminated quote as a
// lexer.LexError; neither asks for more input. See spec §4.3.
func ParseProgram(src string) (ast.Node, error) {
	return parseOnce(src, false)
}

// Feed appends chunk to the accumulated buffer and attempts a parse. It
// returns (node, true, nil) on a complete program, (nil, false, nil) when
// more input is needed (the caller should print PS2 and call Feed again),
// or (nil, false, err) on a hard parse/lex error — the caller should
// discard the buffered input in that case by calling Reset.
func (p *Parser) Feed(chunk string) (ast.Node, bool, error) {
	p.buf += chunk
	node, err := parseOnce(p.buf, true)
	switch err.(type) {
	case nil:
		p.buf = ""
		return node, true, nil
	case lexer.IncompleteInput, IncompleteInput:
		return nil, false, nil
	default:
		p.buf = ""
		return nil, false, err
	}
}

// Reset discards any partially accumulated input.
func (p *Parser) Reset() { p.buf = "" }

func parseOnce(src string, resumable bool) (ast.Node, error) {
	l := lexer.New(src)
	l.Resumable = resumable
	go l.Run()

	s := NewStream(l.Out)
	ps := &parseState{stream: s, open: stack.New[string](8)}

	node, err := ps.parseProgramBody()
	// Drain the token stream so the lexer goroutine can exit even when the
	// parser stopped early on error.
	for range l.Out {
	}
	if err != nil {
		return node, err
	}
	if lerr := l.Err(); lerr != nil {
		return node, lerr
	}
	return node, nil
}

// parseState carries per-attempt parsing state: the token stream and the
// stack of open compound constructs (if/while/until/for/case/{) and of
// pending &&/||/| operands, used to report which construct is unterminated
// when the stream runs out (spec §9's "open-construct stack").
type parseState struct {
	stream *Stream
	open   stack.Stack[string]
}

// parseProgramBody implements `program := list`.
func (ps *parseState) parseProgramBody() (node ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()
	return ps.parseList(true), nil
}

func (ps *parseState) die(e error) {
	panic(e)
}

func (ps *parseState) unexpected(expected string) {
	t := ps.stream.peek()
	if t.Kind == token.EOF && ps.open.Peek() != nil {
		ps.die(IncompleteInput{Open: *ps.open.Peek()})
	}
	ps.die(ParseError{Pos: t.Pos, Expected: expected, Got: t})
}
