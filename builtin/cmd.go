package builtin

import (
	"io"

	"git.sr.ht/~anton/crux/exec"
)

// cmd forces external dispatch for its argument even when a built-in of the
// same name exists, the same escape hatch the original builtin of this name
// provided. Because host.Host.RunExternal needs real OS file descriptors,
// this always runs against the shell's own streams rather than whatever
// io.Reader/io.Writer a builtin-only redirection resolved to.
func cmd(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	if len(argv) < 2 {
		errorf(stderr, argv[0], "usage: cmd command [args ...]")
		return 1, nil
	}
	code, err := sh.Host.RunExternal(argv[1:], nil, nil, sh.Stdin, sh.Stdout, sh.Stderr, false)
	if err != nil {
		errorf(stderr, argv[0], "%s", err)
		return 1, nil
	}
	return code, nil
}
