// Package diag prints shell diagnostics: parse errors, expansion errors,
// and other failures surfaced above the exec/parser layer. Grounded on the
// teacher's log/log.go Err (same "name: message\n" shape), generalized to
// take the caller's writer and program name instead of a hardcoded "andy"
// and os.Stderr, and colorized per SPEC_FULL.md's AMBIENT STACK with
// github.com/fatih/color so a diagnostic stands out from command output.
package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var warn = color.New(color.FgRed)

// Err prints "name: message\n" to w in red when w is a terminal (color
// disables itself automatically otherwise).
func Err(w io.Writer, name, format string, args ...any) {
	warn.Fprintf(w, "%s: %s\n", name, fmt.Sprintf(format, args...))
}
