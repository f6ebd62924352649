package exec

import (
	"git.sr.ht/~anton/crux/ast"
	"git.sr.ht/~anton/crux/parser"
)

// ParseString parses src (a complete, self-contained script — the body of
// a $(...) substitution or a `-c` argument) into one executable node.
func ParseString(src string) (ast.Node, error) {
	return parser.ParseProgram(src)
}
