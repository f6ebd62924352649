package builtin

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"git.sr.ht/~anton/crux/exec"
)

func echo(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	args := make([]any, len(argv)-1)
	for i := range args {
		args[i] = argv[i+1]
	}

	_, err := fmt.Fprintln(stdout, args...)
	if err != nil && !errors.Is(err, syscall.EPIPE) {
		errorf(stderr, argv[0], "%s", err)
		return 1, nil
	}
	return 0, nil
}
