// Package ast defines the tagged node set the parser builds and the
// executor walks. See spec §3.2. Nodes are immutable once constructed: a
// loop or function body is executed repeatedly without mutation.
package ast

// Word is a lexer WORD carrying its quote provenance through to the
// expander, which is the only component allowed to strip quotes or apply
// splitting/globbing. See spec §3.1, §3.3.
type Word struct {
	Lexeme   string
	Value    string
	Quoting  Quoting
	Segments []Segment
}

type Quoting int

const (
	Unquoted Quoting = iota
	SingleQuoted
	DoubleQuoted
	Mixed
)

type Segment struct {
	Text    string
	Quoting Quoting
}

// Node is any executable AST construct.
type Node interface{ astNode() }

// Redirection is { fd, op, target } as described in spec §3.2.
type Redirection struct {
	FD     int // -1 means "use the operator's default"
	Op     RedirOp
	Target Word
}

type RedirOp int

const (
	RedirRead     RedirOp = iota // <
	RedirWrite                   // >
	RedirAppend                  // >>
	RedirReadWrite                // <>
	RedirDupIn                    // <&
	RedirDupOut                   // >&
	RedirHere                     // << (reserved; here-documents are a Non-goal)
)

// Assignment is one NAME=word pair in a simple command's prefix.
type Assignment struct {
	Name  string
	Value Word
}

// Command is a single simple command: a name, its arguments, any
// redirections, and any leading VAR=value assignments. An assignment-only
// "command" (no NameWord) has len(ArgWords) == 0 and sets variables in the
// current scope rather than running anything.
type Command struct {
	NameWord    *Word
	ArgWords    []Word
	Redirs      []Redirection
	Assignments []Assignment
}

func (*Command) astNode() {}

// Pipeline is commands connected by |, optionally negated by a leading !.
type Pipeline struct {
	Stages   []Node // each stage is a Command or a compound construct
	Negate   bool
	Background bool
}

func (*Pipeline) astNode() {}

type Connector int

const (
	ConnAnd Connector = iota
	ConnOr
	ConnEnd
)

// AndOr folds pipelines left-to-right with short-circuit semantics: see
// spec §3.2 and §4.5.
type AndOr struct {
	Items []AndOrItem
}

type AndOrItem struct {
	Node Node
	Conn Connector
}

func (*AndOr) astNode() {}

// List is a sequence of AndOr statements separated by ; or newline.
type List struct {
	Items []Node
}

func (*List) astNode() {}

type ElifBranch struct {
	Cond   Node
	Branch Node
}

type If struct {
	Cond   Node
	Then   Node
	Elifs  []ElifBranch
	Else   Node // nil if absent
}

func (*If) astNode() {}

type While struct {
	Cond Node
	Body Node
}

func (*While) astNode() {}

type Until struct {
	Cond Node
	Body Node
}

func (*Until) astNode() {}

// For iterates Words; an empty Words means iterate the positional
// parameters (spec §3.2).
type For struct {
	Var   string
	Words []Word
	Body  Node
}

func (*For) astNode() {}

type CaseClause struct {
	Patterns []Word
	Body     Node // nil for an empty clause body
}

type Case struct {
	Subject Word
	Clauses []CaseClause
}

func (*Case) astNode() {}

type Function struct {
	Name string
	Body Node
}

func (*Function) astNode() {}

// Subshell runs Body in a forked environment (variable writes do not
// escape). Reserved/optional per spec §3.2.
type Subshell struct {
	Body Node
}

func (*Subshell) astNode() {}

// BraceGroup runs Body in the current environment, just grouping for
// redirection/pipeline purposes (the `{ …; }` compound command).
type BraceGroup struct {
	Body Node
}

func (*BraceGroup) astNode() {}
