// Command crux is a POSIX-style shell core: interactive REPL, script-file,
// or one-shot `-c` invocation, in the teacher's cmd/andy tradition.
package main

import (
	"io"
	"os"

	"git.sr.ht/~anton/crux/builtin"
	"git.sr.ht/~anton/crux/diag"
	"git.sr.ht/~anton/crux/exec"
	"git.sr.ht/~anton/crux/host"
	"git.sr.ht/~anton/crux/parser"
	"git.sr.ht/~anton/crux/repl"
	"git.sr.ht/~anton/crux/state"

	"github.com/spf13/afero"
	"git.sr.ht/~sircmpwn/getopt"
)

func main() {
	opts, optind, err := getopt.Getopts(os.Args, "c:")
	if err != nil {
		die("%s", err)
	}

	var cmdString string
	haveC := false
	for _, o := range opts {
		if o.Option == 'c' {
			cmdString = o.Value
			haveC = true
		}
	}
	args := os.Args[optind:]

	var scriptName string
	var scriptArgs []string
	switch {
	case haveC:
		scriptName = "crux"
		scriptArgs = args
	case len(args) > 0:
		scriptName = args[0]
		scriptArgs = args[1:]
	default:
		scriptName = "crux"
	}

	st := state.New(scriptName, scriptArgs)
	h := host.New(afero.NewOsFs(), builtin.Table)
	sh := exec.New(st, h)
	sourceRC(sh)

	switch {
	case haveC:
		os.Exit(runSource(sh, cmdString))
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			die("%s", err)
		}
		os.Exit(runSource(sh, string(data)))
	default:
		os.Exit(repl.Run(sh, os.Stdin, os.Stdout, os.Stderr))
	}
}

func runSource(sh *exec.Shell, src string) int {
	node, err := parser.ParseProgram(src)
	if err != nil {
		die("%s", err)
	}
	status, err := sh.Run(node)
	if err != nil {
		die("%s", err)
	}
	return status
}

// sourceRC sources ~/.cruxrc at startup if present, mirroring the teacher's
// cmd/andy runFile(".andyrc") convention; a missing file is not an error.
func sourceRC(sh *exec.Shell) {
	home, ok := sh.State.Get("HOME")
	if !ok || home == "" {
		return
	}
	f, err := os.Open(home + "/.cruxrc")
	if err != nil {
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return
	}
	node, err := parser.ParseProgram(string(data))
	if err != nil {
		diag.Err(os.Stderr, sh.State.ScriptName, "~/.cruxrc: %s", err)
		return
	}
	sh.Run(node)
}

func die(format string, args ...any) {
	diag.Err(os.Stderr, "crux", format, args...)
	os.Exit(1)
}
