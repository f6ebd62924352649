package builtin

import (
	"io"

	"git.sr.ht/~anton/crux/exec"
)

func true_(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	if n := len(argv) - 1; n > 0 {
		errorf(stderr, argv[0], "%d arguments are being ignored", n)
	}
	return 0, nil
}

func false_(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	if n := len(argv) - 1; n > 0 {
		errorf(stderr, argv[0], "%d arguments are being ignored", n)
	}
	return 1, nil
}
