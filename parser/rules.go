package parser

import (
	"strconv"
	"strings"

	"git.sr.ht/~anton/crux/ast"
	"git.sr.ht/~anton/crux/token"
)

func isValueTok(t token.Token) bool { return t.Kind == token.WORD }

func isRedirOp(op token.Operator) bool {
	switch op {
	case token.Less, token.Great, token.DGreat, token.LessAmp, token.GreatAmp:
		return true
	}
	return false
}

// isFDPrefix reports whether t is a digit-only unquoted WORD, the shape a
// redirection's optional leading fd takes (spec §3.1/§4.3's `['n'] op
// word`) before the parser knows whether an operator follows it.
func isFDPrefix(t token.Token) bool {
	if t.Kind != token.WORD || t.Quoting != token.Unquoted || t.Value == "" {
		return false
	}
	for _, r := range t.Value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isRedirOpTok(t token.Token) bool {
	return t.Kind == token.OPERATOR && isRedirOp(token.Operator(t.Lexeme))
}

// parseList implements `list := and_or (( ';' | '&' | NL ) and_or)* [ ';' | '&' | NL ]`.
// topLevel additionally treats EOF as a valid terminator of the whole list.
func (ps *parseState) parseList(topLevel bool) ast.Node {
	items := []ast.Node{}
	for {
		ps.skipSeparators()
		if ps.atListEnd(topLevel) {
			break
		}
		node := ps.parseAndOr()

		background := false
		if ps.stream.matchOp(token.Amp) {
			ps.stream.consume()
			background = true
		}
		if pl, ok := node.(*ast.Pipeline); ok {
			pl.Background = background
		} else if background {
			node = &ast.Pipeline{Stages: []ast.Node{node}, Background: true}
		}

		items = append(items, node)

		if !ps.stream.matchOp(token.Semi) && ps.stream.peek().Kind != token.NEWLINE {
			break
		}
	}
	return &ast.List{Items: items}
}

func (ps *parseState) skipSeparators() {
	for ps.stream.peek().Kind == token.NEWLINE || ps.stream.matchOp(token.Semi) {
		ps.stream.consume()
	}
}

func (ps *parseState) atListEnd(topLevel bool) bool {
	t := ps.stream.peek()
	if t.Kind == token.EOF {
		return true
	}
	if topLevel {
		return false
	}
	if t.Kind == token.WORD && t.Quoting == token.Unquoted {
		switch t.Value {
		case "then", "do", "else", "elif", "fi", "done", "esac", "}":
			return true
		}
	}
	if ps.stream.matchOp(token.RBrace) || ps.stream.matchOp(token.RParen) {
		return true
	}
	return false
}

// parseAndOr implements `and_or := pipeline (('&&' | '||') pipeline)*`.
func (ps *parseState) parseAndOr() ast.Node {
	first := ps.parsePipeline()
	items := []ast.AndOrItem{{Node: first, Conn: token_ConnEnd}}

	for {
		var conn token.Operator
		switch {
		case ps.stream.matchOp(token.And):
			conn = token.And
		case ps.stream.matchOp(token.Or):
			conn = token.Or
		default:
			if len(items) == 1 {
				return first
			}
			return &ast.AndOr{Items: items}
		}
		ps.stream.consume()
		ps.skipSeparators()

		c := ast.ConnAnd
		if conn == token.Or {
			c = ast.ConnOr
		}
		items[len(items)-1].Conn = c
		ps.open.Push(string(conn))
		items = append(items, ast.AndOrItem{Node: ps.parsePipeline(), Conn: token_ConnEnd})
		ps.open.Pop()
	}
}

const token_ConnEnd = ast.ConnEnd

// parsePipeline implements `pipeline := [ '!' ] command ('|' command)*`.
func (ps *parseState) parsePipeline() ast.Node {
	negate := false
	if t := ps.stream.peek(); t.Kind == token.WORD && t.Quoting == token.Unquoted && t.Value == "!" {
		ps.stream.consume()
		negate = true
	}

	stages := []ast.Node{ps.parseCommand()}
	for ps.stream.matchOp(token.Pipe) || ps.stream.matchOp(token.PipeAmp) {
		ps.stream.consume()
		ps.skipSeparators()
		ps.open.Push("|")
		stages = append(stages, ps.parseCommand())
		ps.open.Pop()
	}

	if len(stages) == 1 && !negate {
		return stages[0]
	}
	return &ast.Pipeline{Stages: stages, Negate: negate}
}

// parseCommand implements `command := simple_command | compound_command`.
func (ps *parseState) parseCommand() ast.Node {
	t := ps.stream.peek()
	if t.Kind == token.WORD && t.Quoting == token.Unquoted {
		switch t.Value {
		case "if":
			ps.stream.consume()
			return ps.parseIf()
		case "while":
			ps.stream.consume()
			return ps.parseWhile()
		case "until":
			ps.stream.consume()
			return ps.parseUntil()
		case "for":
			ps.stream.consume()
			return ps.parseFor()
		case "case":
			ps.stream.consume()
			return ps.parseCase()
		case "function":
			ps.stream.consume()
			return ps.parseFunctionKeyword()
		case "then", "else", "elif", "fi", "do", "done", "esac", "}":
			ps.unexpected("command")
		}
	}
	if ps.atKeyword("{") {
		ps.stream.consume()
		return ps.parseBraceGroup()
	}
	if ps.stream.matchOp(token.LParen) {
		ps.stream.consume()
		return ps.parseSubshell()
	}
	// The bare `name ( ) compound_command` function-definition spelling
	// (spec §4.3's second function_def alternative) is told apart from a
	// simple command by the `(` right after the name, seen through Stream's
	// second lookahead slot; parseFunctionKeyword then reads the name, the
	// `( )` and the body just as for the `function name` spelling.
	if next := ps.stream.peekAt(1); t.Kind == token.WORD && t.Quoting == token.Unquoted &&
		next.Kind == token.OPERATOR && token.Operator(next.Lexeme) == token.LParen {
		return ps.parseFunctionKeyword()
	}
	return ps.parseSimpleCommand()
}

func (ps *parseState) parseFunctionKeyword() ast.Node {
	nameTok := ps.stream.consume()
	if !isValueTok(nameTok) {
		ps.unexpected("function name")
	}
	if ps.stream.matchOp(token.LParen) {
		ps.stream.consume()
		if !ps.stream.matchOp(token.RParen) {
			ps.unexpected("')'")
		}
		ps.stream.consume()
	}
	body := ps.parseCompoundBody()
	return &ast.Function{Name: nameTok.Value, Body: body}
}

func (ps *parseState) parseCompoundBody() ast.Node {
	t := ps.stream.peek()
	switch {
	case t.Kind == token.WORD && t.Quoting == token.Unquoted && t.Value == "if":
		ps.stream.consume()
		return ps.parseIf()
	case t.Kind == token.WORD && t.Quoting == token.Unquoted && t.Value == "while":
		ps.stream.consume()
		return ps.parseWhile()
	case t.Kind == token.WORD && t.Quoting == token.Unquoted && t.Value == "for":
		ps.stream.consume()
		return ps.parseFor()
	case t.Kind == token.WORD && t.Quoting == token.Unquoted && t.Value == "case":
		ps.stream.consume()
		return ps.parseCase()
	case ps.atKeyword("{"):
		ps.stream.consume()
		return ps.parseBraceGroup()
	case ps.stream.matchOp(token.LParen):
		ps.stream.consume()
		return ps.parseSubshell()
	}
	ps.unexpected("compound command")
	return nil
}

func (ps *parseState) parseBraceGroup() ast.Node {
	ps.open.Push("{")
	defer ps.open.Pop()
	body := ps.parseList(false)
	if !ps.atKeyword("}") {
		ps.unexpected("'}'")
	}
	ps.stream.consume()
	return &ast.BraceGroup{Body: body}
}

func (ps *parseState) parseSubshell() ast.Node {
	ps.open.Push("(")
	defer ps.open.Pop()
	body := ps.parseList(false)
	if !ps.stream.matchOp(token.RParen) {
		ps.unexpected("')'")
	}
	ps.stream.consume()
	return &ast.Subshell{Body: body}
}

func (ps *parseState) expectKeyword(kw string) {
	t := ps.stream.peek()
	if t.Kind != token.WORD || t.Quoting != token.Unquoted || t.Value != kw {
		ps.unexpected("'" + kw + "'")
	}
	ps.stream.consume()
}

func (ps *parseState) atKeyword(kw string) bool {
	t := ps.stream.peek()
	return t.Kind == token.WORD && t.Quoting == token.Unquoted && t.Value == kw
}

// parseIf implements the if_clause production.
func (ps *parseState) parseIf() ast.Node {
	ps.open.Push("if")
	defer ps.open.Pop()

	cond := ps.parseList(false)
	ps.expectKeyword("then")
	then := ps.parseList(false)

	node := &ast.If{Cond: cond, Then: then}
	cur := node
	for ps.atKeyword("elif") {
		ps.stream.consume()
		c := ps.parseList(false)
		ps.expectKeyword("then")
		b := ps.parseList(false)
		cur.Elifs = append(cur.Elifs, ast.ElifBranch{Cond: c, Branch: b})
	}
	if ps.atKeyword("else") {
		ps.stream.consume()
		cur.Else = ps.parseList(false)
	}
	ps.expectKeyword("fi")
	return node
}

func (ps *parseState) parseWhile() ast.Node {
	ps.open.Push("while")
	defer ps.open.Pop()
	cond := ps.parseList(false)
	ps.expectKeyword("do")
	body := ps.parseList(false)
	ps.expectKeyword("done")
	return &ast.While{Cond: cond, Body: body}
}

func (ps *parseState) parseUntil() ast.Node {
	ps.open.Push("until")
	defer ps.open.Pop()
	cond := ps.parseList(false)
	ps.expectKeyword("do")
	body := ps.parseList(false)
	ps.expectKeyword("done")
	return &ast.Until{Cond: cond, Body: body}
}

// parseFor implements `for_clause := 'for' name [ 'in' word* ] sep 'do' list 'done'`.
func (ps *parseState) parseFor() ast.Node {
	ps.open.Push("for")
	defer ps.open.Pop()

	nameTok := ps.stream.consume()
	if !isValueTok(nameTok) || nameTok.Quoting != token.Unquoted {
		ps.unexpected("loop variable name")
	}

	var words []ast.Word
	ps.skipSeparators()
	if ps.atKeyword("in") {
		ps.stream.consume()
		for isValueTok(ps.stream.peek()) && !ps.atKeyword("do") {
			words = append(words, ast.NewWord(ps.stream.consume()))
		}
	}
	ps.skipSeparators()
	ps.expectKeyword("do")
	body := ps.parseList(false)
	ps.expectKeyword("done")
	return &ast.For{Var: nameTok.Value, Words: words, Body: body}
}

// parseCase implements `case_clause` / `case_item`.
func (ps *parseState) parseCase() ast.Node {
	ps.open.Push("case")
	defer ps.open.Pop()

	subjTok := ps.stream.consume()
	if !isValueTok(subjTok) {
		ps.unexpected("case subject")
	}
	ps.skipSeparators()
	ps.expectKeyword("in")
	ps.skipSeparators()

	c := &ast.Case{Subject: ast.NewWord(subjTok)}
	for !ps.atKeyword("esac") {
		ps.skipSeparators()
		if ps.atKeyword("esac") {
			break
		}
		if ps.stream.matchOp(token.LParen) {
			ps.stream.consume()
		}
		var patterns []ast.Word
		patterns = append(patterns, ast.NewWord(ps.stream.consume()))
		for ps.stream.matchOp(token.Pipe) {
			ps.stream.consume()
			patterns = append(patterns, ast.NewWord(ps.stream.consume()))
		}
		if !ps.stream.matchOp(token.RParen) {
			ps.unexpected("')'")
		}
		ps.stream.consume()

		var body ast.Node
		ps.skipSeparators()
		if !ps.stream.matchOp(token.SemiSemi) && !ps.atKeyword("esac") {
			body = ps.parseList(false)
		}
		c.Clauses = append(c.Clauses, ast.CaseClause{Patterns: patterns, Body: body})

		ps.skipSeparators()
		if ps.stream.matchOp(token.SemiSemi) {
			ps.stream.consume()
		}
		ps.skipSeparators()
	}
	ps.expectKeyword("esac")
	return c
}

// parseSimpleCommand implements
// `simple_command := assignments? word (word | redirection)* | assignments`.
func (ps *parseState) parseSimpleCommand() ast.Node {
	cmd := &ast.Command{}

	for {
		t := ps.stream.peek()
		// x="a b" or x='$y' lexes as Mixed; it is still an assignment when
		// the `=` lies in its leading unquoted segment.
		mixed := t.Kind == token.WORD && t.Quoting == token.Mixed &&
			t.Segments[0].Quoting == token.Unquoted && strings.Contains(t.Segments[0].Text, "=")
		if t.Kind == token.WORD && (t.Quoting == token.Unquoted || mixed) {
			if name, value, ok := splitAssignment(t.Value); ok {
				ps.stream.consume()
				w := ast.Word{Lexeme: value, Value: value, Quoting: ast.Unquoted}
				if mixed {
					w = ast.NewWord(t) // keep the quoting of what follows the `=`
					w.Lexeme, w.Value = value, value
					w.Segments[0].Text = w.Segments[0].Text[strings.Index(w.Segments[0].Text, "=")+1:]
				}
				cmd.Assignments = append(cmd.Assignments, ast.Assignment{Name: name, Value: w})
				continue
			}
		}
		break
	}

	for {
		t := ps.stream.peek()
		switch {
		case isFDPrefix(t) && isRedirOpTok(ps.stream.peekAt(1)):
			fd := ps.stream.consume()
			cmd.Redirs = append(cmd.Redirs, ps.parseRedirection(&fd))
		case isValueTok(t):
			w := ast.NewWord(ps.stream.consume())
			if cmd.NameWord == nil {
				cmd.NameWord = &w
			} else {
				cmd.ArgWords = append(cmd.ArgWords, w)
			}
		case t.Kind == token.OPERATOR && isRedirOp(token.Operator(t.Lexeme)):
			cmd.Redirs = append(cmd.Redirs, ps.parseRedirection(nil))
		default:
			if cmd.NameWord == nil && len(cmd.Assignments) == 0 {
				ps.unexpected("command")
			}
			return cmd
		}
	}
}

// parseRedirection implements `redirection := ['n'] op word`. The optional
// leading fd digit is lexed as its own WORD token ahead of the operator
// (spec §4.1 treats a bare digit as an ordinary word); parseSimpleCommand
// peeks one token past such a WORD to tell a redirection's fd prefix apart
// from an ordinary argument before committing to either, and passes the
// already-consumed digit token in as fd when it found one.
func (ps *parseState) parseRedirection(fd *token.Token) ast.Redirection {
	op := ps.stream.consume()
	r := ast.Redirection{FD: -1, Op: redirOpFor(token.Operator(op.Lexeme))}
	if fd != nil {
		if n, err := strconv.Atoi(fd.Value); err == nil {
			r.FD = n
		}
	}
	target := ps.stream.consume()
	if !isValueTok(target) {
		ps.unexpected("redirection target")
	}
	r.Target = ast.NewWord(target)
	return r
}

func redirOpFor(op token.Operator) ast.RedirOp {
	switch op {
	case token.Less:
		return ast.RedirRead
	case token.Great:
		return ast.RedirWrite
	case token.DGreat:
		return ast.RedirAppend
	case token.LessAmp:
		return ast.RedirDupIn
	case token.GreatAmp:
		return ast.RedirDupOut
	}
	panic("unreachable redirection operator")
}

// splitAssignment recognizes an unquoted WORD of the form NAME=value as an
// assignment-prefix word (spec §3.1: "the `=` operator recognized only as
// the first `=` inside an unquoted assignment-prefix word").
func splitAssignment(s string) (name, value string, ok bool) {
	for i, r := range s {
		if r == '=' {
			if i == 0 {
				return "", "", false
			}
			if !isNameRune(rune(s[0]), true) {
				return "", "", false
			}
			for _, c := range s[:i] {
				if !isNameRune(c, false) {
					return "", "", false
				}
			}
			return s[:i], s[i+1:], true
		}
		if !isNameRune(r, i == 0) {
			return "", "", false
		}
	}
	return "", "", false
}

func isNameRune(r rune, first bool) bool {
	if r == '_' {
		return true
	}
	if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
		return true
	}
	if !first && r >= '0' && r <= '9' {
		return true
	}
	return false
}
