package builtin

import (
	"bytes"
	"errors"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"git.sr.ht/~anton/crux/exec"

	"git.sr.ht/~sircmpwn/getopt"
)

// read implements the byte-at-a-time delimited field reader the original
// builtin of this name provided, rebound onto ShellState variables (as the
// set builtin in set.go is) instead of a package-level VarTable.
func read(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	opts, optind, err := getopt.Getopts(argv, "d:Dn:")
	if err != nil {
		errorf(stderr, argv[0], "%s", err)
		return readUsage(argv[0], stderr), nil
	}

	var ds []byte
	var noEmpty bool
	cnt := math.MaxInt
	for _, o := range opts {
		switch o.Option {
		case 'd':
			ds = []byte(o.Value)
		case 'D':
			noEmpty = true
		case 'n':
			n, err := strconv.Atoi(o.Value)
			if err != nil {
				errorf(stderr, argv[0], "%s", err)
				return readUsage(argv[0], stderr), nil
			}
			cnt = n
		}
	}

	rest := argv[optind:]
	if len(rest) != 1 {
		return readUsage(argv[0], stderr), nil
	}

	sb := strings.Builder{}
	buf := make([]byte, 1)
	var parts []string
outer:
	for cnt > 0 {
		_, err := stdin.Read(buf)
		switch {
		case errors.Is(err, io.EOF):
			if sb.Len() > 0 {
				parts = append(parts, sb.String())
			}
			break outer
		case err != nil:
			errorf(stderr, argv[0], "%s", err)
			return 1, nil
		}

		b := buf[0]
		if bytes.IndexByte(ds, b) != -1 {
			cnt--
			parts = append(parts, sb.String())
			sb.Reset()
		} else {
			sb.WriteByte(b)
		}
	}

	if noEmpty {
		parts = slices.DeleteFunc(parts, func(s string) bool { return s == "" })
	}
	if len(parts) == 0 {
		return 1, nil
	}
	if n := len(parts) - 1; len(parts[n]) > 0 && parts[n][len(parts[n])-1] == '\n' {
		parts[n] = parts[n][:len(parts[n])-1]
	}

	setArgv := append([]string{"set", rest[0]}, parts...)
	return set(sh, setArgv, stdin, stdout, stderr)
}

func readUsage(name string, stderr io.Writer) int {
	errorf(stderr, name, "usage: read [-D] [-n num] [-d string] variable")
	return 1
}
