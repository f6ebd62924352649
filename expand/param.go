package expand

import (
	"strconv"
	"strings"

	"git.sr.ht/~anton/crux/pattern"
	"git.sr.ht/~anton/crux/state"
)

// expandParam expands one $name / ${...} construct, text being everything
// after the leading `$` (so "name", "{name}", "{name:-word}", "@", "#",
// "?", "1", ...).
func expandParam(text string, ctx Context) (string, error) {
	if !strings.HasPrefix(text, "{") {
		return lookupSimple(text, ctx.State), nil
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "{"), "}")
	return expandBraceParam(inner, ctx)
}

func lookupSimple(name string, s *state.ShellState) string {
	switch name {
	case "@", "*":
		if s != nil {
			return strings.Join(s.Positional(), " ")
		}
		return ""
	case "#":
		if s != nil {
			return strconv.Itoa(len(s.Positional()))
		}
		return "0"
	case "?":
		if s != nil {
			return strconv.Itoa(s.LastStatus)
		}
		return "0"
	case "$":
		if s != nil {
			return strconv.Itoa(s.PID)
		}
		return "0"
	case "!":
		if s != nil {
			return strconv.Itoa(s.LastBgPID)
		}
		return "0"
	case "-":
		if s != nil {
			return s.Flags()
		}
		return ""
	}
	if n, err := strconv.Atoi(name); err == nil {
		if s == nil {
			return ""
		}
		pos := s.Positional()
		if n == 0 {
			return s.ScriptName
		}
		if n >= 1 && n <= len(pos) {
			return pos[n-1]
		}
		return ""
	}
	if s == nil {
		return ""
	}
	v, _ := s.Get(name)
	return v
}

// expandBraceParam handles the body of a `${...}` construct: a bare name,
// `#name` (length), or `name<op>word` for one of the modifier operators
// spec §4.4 lists.
func expandBraceParam(inner string, ctx Context) (string, error) {
	if strings.HasPrefix(inner, "#") {
		name := inner[1:]
		if name != "" {
			v := lookupSimple(name, ctx.State)
			return strconv.Itoa(len([]rune(v))), nil
		}
	}

	name, op, arg, found := splitModifier(inner)
	if !found {
		return lookupSimple(inner, ctx.State), nil
	}

	val := lookupSimple(name, ctx.State)
	isSet := false
	if ctx.State != nil {
		_, isSet = ctx.State.Get(name)
	}
	if !isSet {
		switch name {
		case "@", "*", "#", "?", "$", "!", "-":
			isSet = true
		default:
			if _, err := strconv.Atoi(name); err == nil {
				isSet = true
			}
		}
	}

	switch op {
	case ":-":
		if !isSet || val == "" {
			return expandModifierArg(arg, ctx)
		}
		return val, nil
	case "-":
		if !isSet {
			return expandModifierArg(arg, ctx)
		}
		return val, nil
	case ":=":
		if !isSet || val == "" {
			rep, err := expandModifierArg(arg, ctx)
			if err != nil {
				return "", err
			}
			if ctx.State != nil {
				ctx.State.Set(name, rep)
			}
			return rep, nil
		}
		return val, nil
	case "=":
		if !isSet {
			rep, err := expandModifierArg(arg, ctx)
			if err != nil {
				return "", err
			}
			if ctx.State != nil {
				ctx.State.Set(name, rep)
			}
			return rep, nil
		}
		return val, nil
	case ":?":
		if !isSet || val == "" {
			msg, _ := expandModifierArg(arg, ctx)
			if msg == "" {
				msg = "parameter null or not set"
			}
			return "", ParamError{Name: name, Msg: msg}
		}
		return val, nil
	case "?":
		if !isSet {
			msg, _ := expandModifierArg(arg, ctx)
			if msg == "" {
				msg = "parameter not set"
			}
			return "", ParamError{Name: name, Msg: msg}
		}
		return val, nil
	case ":+":
		if isSet && val != "" {
			return expandModifierArg(arg, ctx)
		}
		return "", nil
	case "+":
		if isSet {
			return expandModifierArg(arg, ctx)
		}
		return "", nil
	case "#", "##":
		pat, err := expandModifierArg(arg, ctx)
		if err != nil {
			return "", err
		}
		greed := pattern.Lazy
		if op == "##" {
			greed = pattern.Greedy
		}
		re := pattern.CompilePrefix(pat, greed)
		return re.ReplaceAllString(val, ""), nil
	case "%", "%%":
		pat, err := expandModifierArg(arg, ctx)
		if err != nil {
			return "", err
		}
		greed := pattern.Lazy
		if op == "%%" {
			greed = pattern.Greedy
		}
		return pattern.StripSuffix(val, pat, greed), nil
	case "/", "//", "/#", "/%":
		return expandReplace(val, arg, op, ctx)
	case "^", "^^", ",", ",,":
		return applyCase(val, op), nil
	}
	return val, nil
}

// ParamError is raised by `${name:?word}` / `${name?word}`.
type ParamError struct {
	Name string
	Msg  string
}

func (e ParamError) Error() string {
	return e.Name + ": " + e.Msg
}

// splitModifier separates a `${...}` interior into name, operator, and
// argument, scanning left to right for the first recognized operator at
// top level (not inside a nested `${...}` or `$(...)`).
func splitModifier(inner string) (name, op, arg string, found bool) {
	ops := []string{":-", ":=", ":?", ":+", "##", "%%", "^^", ",,", "//", "/#", "/%", "#", "%", "/", "^", ",", "-", "=", "?", "+"}
	r := []rune(inner)
	depth := 0
	for i := 0; i < len(r); i++ {
		switch r[i] {
		case '{', '(':
			depth++
			continue
		case '}', ')':
			depth--
			continue
		}
		if depth != 0 {
			continue
		}
		for _, o := range ops {
			if hasPrefixAt(r, i, o) {
				return string(r[:i]), o, string(r[i+len(o):]), true
			}
		}
	}
	return inner, "", "", false
}

func hasPrefixAt(r []rune, i int, s string) bool {
	rs := []rune(s)
	if i+len(rs) > len(r) {
		return false
	}
	for j, c := range rs {
		if r[i+j] != c {
			return false
		}
	}
	return true
}

// expandModifierArg substitutes and concatenates (but does not split or
// glob) a modifier's word argument, which may itself contain `$` or `` ` ``
// constructs.
func expandModifierArg(arg string, ctx Context) (string, error) {
	return expandEmbedded(arg, ctx)
}

// expandReplace implements `${P/pat/repl}`, `${P//pat/repl}`, and the
// anchored `${P/#pat/repl}` / `${P/%pat/repl}` extensions.
func expandReplace(val, arg, op string, ctx Context) (string, error) {
	patText, replText, hasRepl := splitReplaceArg(arg)
	pat, err := expandModifierArg(patText, ctx)
	if err != nil {
		return "", err
	}
	repl := ""
	if hasRepl {
		repl, err = expandModifierArg(replText, ctx)
		if err != nil {
			return "", err
		}
	}
	switch op {
	case "/#":
		re := pattern.CompilePrefix(pat, pattern.Greedy)
		if re.MatchString(val) {
			return re.ReplaceAllString(val, repl), nil
		}
		return val, nil
	case "/%":
		re := pattern.CompileSuffix(pat, pattern.Greedy)
		if re.MatchString(val) {
			return re.ReplaceAllString(val, repl), nil
		}
		return val, nil
	case "//":
		re := pattern.CompileFull(pat, pattern.Greedy)
		return re.ReplaceAllString(val, repl), nil
	default: // "/"
		re := pattern.CompileFull(pat, pattern.Greedy)
		replaced := false
		return re.ReplaceAllStringFunc(val, func(m string) string {
			if replaced {
				return m
			}
			replaced = true
			return repl
		}), nil
	}
}

func splitReplaceArg(arg string) (pat, repl string, hasRepl bool) {
	depth := 0
	r := []rune(arg)
	for i, c := range r {
		switch c {
		case '{', '(':
			depth++
		case '}', ')':
			depth--
		case '/':
			if depth == 0 {
				return string(r[:i]), string(r[i+1:]), true
			}
		}
	}
	return arg, "", false
}

func applyCase(val, op string) string {
	switch op {
	case "^":
		return mapFirst(val, true)
	case "^^":
		return strings.ToUpper(val)
	case ",":
		return mapFirst(val, false)
	case ",,":
		return strings.ToLower(val)
	}
	return val
}

func mapFirst(s string, upper bool) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	if upper {
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	} else {
		r[0] = []rune(strings.ToLower(string(r[0])))[0]
	}
	return string(r)
}
