// Package arith implements the integer arithmetic evaluator of spec §4.4: a
// recursive-descent parser/evaluator over the pre-expanded arithmetic
// source string, reading and writing shell variables through the Vars
// interface. Integers are signed 64-bit; overflow wraps per two's
// complement (Go's native signed-integer-overflow behavior already does
// this), and division/modulo by zero is an ArithError fatal to the whole
// expression, per spec §4.4 and §7.
package arith

import (
	"fmt"
)

// Vars is the variable scope the evaluator reads bare identifiers from and
// writes compound/plain assignments back to. An unset name reads as 0 per
// spec §4.4.
type Vars interface {
	Get(name string) (string, bool)
	Set(name string, value string)
}

// ArithError is the fatal error kind for malformed expressions and
// division/modulo by zero (spec §7).
type ArithError struct {
	Msg string
}

func (e ArithError) Error() string { return "arithmetic error: " + e.Msg }

// Eval parses and evaluates expr, returning its integer value.
func Eval(expr string, vars Vars) (int64, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	p := &parser{toks: toks, vars: vars}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.toks) {
		return 0, ArithError{Msg: fmt.Sprintf("unexpected token %q", p.toks[p.pos].text)}
	}
	return v, nil
}
