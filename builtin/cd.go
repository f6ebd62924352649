package builtin

import (
	"io"
	"os"
	"os/user"

	"git.sr.ht/~anton/crux/exec"
)

// dirStack backs `cd -`, grounded on the teacher's package-level push/pop
// directory stack.
type dirStack struct{ dirs []string }

var dirs dirStack

func (s *dirStack) push(dir string) { s.dirs = append(s.dirs, dir) }

func (s *dirStack) pop() (string, bool) {
	if len(s.dirs) == 0 {
		return "", false
	}
	n := len(s.dirs) - 1
	d := s.dirs[n]
	s.dirs = s.dirs[:n]
	return d, true
}

func cd(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	var dst string
	switch len(argv) {
	case 1:
		if v, ok := sh.State.Get("HOME"); ok && v != "" {
			dst = v
		} else if u, err := user.Current(); err == nil {
			dst = u.HomeDir
		} else {
			errorf(stderr, argv[0], "%s", err)
			return 1, nil
		}
	case 2:
		dst = argv[1]
		if dst == "-" {
			return cdPop(sh, argv, stderr)
		}
	default:
		errorf(stderr, argv[0], "usage: cd [directory]")
		return 1, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		dirs.push(cwd)
	}
	if err := os.Chdir(dst); err != nil {
		dirs.pop()
		errorf(stderr, argv[0], "%s", err)
		return 1, nil
	}
	sh.State.Set("PWD", dst)
	return 0, nil
}

func cdPop(sh *exec.Shell, argv []string, stderr io.Writer) (int, error) {
	dst, ok := dirs.pop()
	if !ok {
		errorf(stderr, argv[0], "the directory stack is empty")
		return 1, nil
	}
	if err := os.Chdir(dst); err != nil {
		errorf(stderr, argv[0], "%s", err)
		return 1, nil
	}
	sh.State.Set("PWD", dst)
	return 0, nil
}

func pwd(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	cwd, err := os.Getwd()
	if err != nil {
		errorf(stderr, argv[0], "%s", err)
		return 1, nil
	}
	io.WriteString(stdout, cwd+"\n")
	return 0, nil
}
