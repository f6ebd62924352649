package builtin

import (
	"io"
	"strconv"

	"git.sr.ht/~anton/crux/exec"
)

// exitBuiltin, returnBuiltin, breakBuiltin, and continueBuiltin don't
// themselves change any state; they return an exec.control-flow error that
// the tree-walker uses to unwind to the right point (spec §7).
func exitBuiltin(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	n := sh.State.LastStatus
	if len(argv) > 1 {
		v, err := strconv.Atoi(argv[1])
		if err != nil {
			errorf(stderr, argv[0], "%s: numeric argument required", argv[1])
			n = 2
		} else {
			n = v
		}
	}
	return n, exec.Exit(n)
}

func returnBuiltin(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	n := sh.State.LastStatus
	if len(argv) > 1 {
		v, err := strconv.Atoi(argv[1])
		if err != nil {
			errorf(stderr, argv[0], "%s: numeric argument required", argv[1])
			return 2, exec.Return(2)
		}
		n = v
	}
	return n, exec.Return(n)
}

func breakBuiltin(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	n := 1
	if len(argv) > 1 {
		v, err := strconv.Atoi(argv[1])
		if err != nil || v < 1 {
			errorf(stderr, argv[0], "%s: bad loop count", argv[1])
			return 1, nil
		}
		n = v
	}
	return 0, exec.Break(n)
}

func continueBuiltin(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	n := 1
	if len(argv) > 1 {
		v, err := strconv.Atoi(argv[1])
		if err != nil || v < 1 {
			errorf(stderr, argv[0], "%s: bad loop count", argv[1])
			return 1, nil
		}
		n = v
	}
	return 0, exec.Continue(n)
}

func shift(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	n := 1
	if len(argv) > 1 {
		v, err := strconv.Atoi(argv[1])
		if err != nil || v < 0 {
			errorf(stderr, argv[0], "%s: numeric argument required", argv[1])
			return 1, nil
		}
		n = v
	}
	pos := sh.State.Positional()
	if n > len(pos) {
		errorf(stderr, argv[0], "shift count %d exceeds %d positional parameters", n, len(pos))
		return 1, nil
	}
	sh.State.SetPositional(pos[n:])
	return 0, nil
}
