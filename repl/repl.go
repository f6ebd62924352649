// Package repl drives an interactive session: read a line, feed it to a
// resumable parser.Parser for PS1/PS2 prompting, run the result against an
// exec.Shell. Grounded on the teacher's main.go processStdin loop
// (bufio.Reader.ReadString('\n'), an errx-on-EOF exit), generalized to the
// resumable Parser.Feed API and colorized diagnostics.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"git.sr.ht/~anton/crux/diag"
	"git.sr.ht/~anton/crux/exec"
	"git.sr.ht/~anton/crux/parser"

	"golang.org/x/term"
)

// PS1 and PS2 mirror the teacher's "$ " primary prompt, with a continuation
// prompt for constructs Feed reports as incomplete (spec §8's "resumable
// parse" invariant).
const (
	PS1 = "$ "
	PS2 = "> "
)

// Run drives one interactive session over in/out/errOut until EOF or an
// exit builtin/control-flow signal unwinds it. It returns the shell's final
// exit status.
func Run(sh *exec.Shell, in io.Reader, out, errOut *os.File) int {
	sh.Stdout = out
	r := bufio.NewReader(in)
	p := parser.New()
	p.Resumable = true

	interactive := term.IsTerminal(int(errOut.Fd()))
	name := sh.State.ScriptName

	prompt := func(s string) {
		if interactive {
			fmt.Fprint(errOut, s)
		}
	}

	prompt(PS1)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			node, complete, ferr := p.Feed(line)
			switch {
			case ferr != nil:
				diag.Err(errOut, name, "%s", ferr)
				p.Reset()
				prompt(PS1)
			case !complete:
				prompt(PS2)
			default:
				if node != nil {
					if _, runErr := sh.Run(node); runErr != nil {
						diag.Err(errOut, name, "%s", runErr)
					}
				}
				prompt(PS1)
			}
		}

		if errors.Is(err, io.EOF) {
			if interactive {
				fmt.Fprintln(errOut, "^D")
			}
			return sh.State.LastStatus
		}
		if err != nil {
			diag.Err(errOut, name, "%s", err)
			return 1
		}
	}
}
