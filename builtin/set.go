package builtin

import (
	"io"
	"strings"

	"git.sr.ht/~anton/crux/exec"
)

// set binds a shell variable directly, bypassing the parser's NAME=value
// assignment-word syntax. The original andy builtin this is grounded on
// stores one array of strings per variable (its variables are always
// arrays); state.Variable is a scalar here (spec §3.4), so multiple values
// are joined with a single space, the same join rule $* uses.
func set(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	if len(argv) == 1 {
		errorf(stderr, argv[0], "usage: set variable [value ...]")
		return 1, nil
	}

	ident := argv[1]
	if !validName(ident) {
		errorf(stderr, argv[0], "%q is not a valid variable name", ident)
		return 1, nil
	}

	if len(argv) == 2 {
		if _, ok := sh.State.Get(ident); !ok {
			errorf(stderr, argv[0], "variable %q was already unset", ident)
			return 1, nil
		}
		sh.State.Unset(ident)
		return 0, nil
	}

	sh.State.Set(ident, strings.Join(argv[2:], " "))
	return 0, nil
}

func export(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	if len(argv) == 1 {
		errorf(stderr, argv[0], "usage: export name[=value] ...")
		return 1, nil
	}
	for _, arg := range argv[1:] {
		if name, value, ok := strings.Cut(arg, "="); ok {
			sh.State.SetGlobal(name, value, true)
			continue
		}
		if !validName(arg) {
			errorf(stderr, argv[0], "%q is not a valid variable name", arg)
			return 1, nil
		}
		sh.State.Export(arg)
	}
	return 0, nil
}

func unset(sh *exec.Shell, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	for _, name := range argv[1:] {
		sh.State.Unset(name)
	}
	return 0, nil
}

// validName mirrors the parser's own assignment-word identifier rule (spec
// §3.1): a leading letter or underscore, then letters, digits, underscores.
func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
