// Package builtin implements the shell built-ins that must run inside the
// shell's own process (cd, set, export, ...) rather than as a forked
// external command. The teacher's *exec.Cmd-as-argv/stream-carrier trick
// is replaced by exec.Shell itself, since built-ins here read and write
// shared shell state (variables, positional parameters), not just stdio.
package builtin

import (
	"fmt"
	"io"

	"git.sr.ht/~anton/crux/exec"
)

// Table is the fixed name-to-implementation map every host.Host is
// constructed with.
var Table = map[string]exec.Builtin{
	"cd":       cd,
	"echo":     echo,
	"true":     true_,
	"false":    false_,
	"read":     read,
	"set":      set,
	"export":   export,
	"unset":    unset,
	"exit":     exitBuiltin,
	"return":   returnBuiltin,
	"break":    breakBuiltin,
	"continue": continueBuiltin,
	"shift":    shift,
	"pwd":      pwd,
	"cmd":      cmd,
}

func errorf(stderr io.Writer, name, format string, args ...any) {
	fmt.Fprintf(stderr, "%s: %s\n", name, fmt.Sprintf(format, args...))
}
