package expand

import (
	"fmt"
	"strconv"
	"strings"
)

// expandBraces implements brace expansion (`{a,b,c}`, `{1..5}`, `{1..10..2}`,
// `{a..e}`) on a wholly-unquoted word's raw lexeme. It runs before any other
// expansion, operating on literal text only; a brace group containing `$`
// constructs still expands correctly because the substituted text is
// untouched by this pass and handled later, per word, by expandOne.
func expandBraces(s string) []string {
	pre, body, post, ok := findBraceGroup(s)
	if !ok {
		return []string{s}
	}
	alts := splitBraceAlts(body)
	if len(alts) < 2 {
		if r, ok := expandRange(body); ok {
			alts = r
		} else {
			return []string{s}
		}
	}
	var out []string
	for _, a := range alts {
		for _, tail := range expandBraces(post) {
			for _, head := range expandBraces(pre) {
				out = append(out, head+a+tail)
			}
		}
	}
	return out
}

// findBraceGroup locates the first top-level `{...}` group in s, returning
// the text before it, its interior, and the text after it.
func findBraceGroup(s string) (pre, body, post string, ok bool) {
	r := []rune(s)
	start := -1
	depth := 0
	for i := 0; i < len(r); i++ {
		switch r[i] {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start >= 0 {
				return string(r[:start]), string(r[start+1 : i]), string(r[i+1:]), true
			}
		}
	}
	return s, "", "", false
}

// splitBraceAlts splits body on top-level commas, respecting nested braces.
// A body with no top-level comma is not a valid {a,b} expansion (bash
// leaves `{foo}` with no comma unexpanded).
func splitBraceAlts(body string) []string {
	var alts []string
	depth := 0
	last := 0
	r := []rune(body)
	for i, c := range r {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				alts = append(alts, string(r[last:i]))
				last = i + 1
			}
		}
	}
	if len(alts) == 0 {
		return nil
	}
	alts = append(alts, string(r[last:]))
	return alts
}

// expandRange handles `{m..n}` and `{m..n..step}`, numeric or single-letter,
// with zero-padding preserved when an endpoint carries a leading zero.
func expandRange(body string) ([]string, bool) {
	parts := strings.Split(body, "..")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, false
	}
	if out, ok := numericRange(parts); ok {
		return out, true
	}
	if len(parts) == 2 && len(parts[0]) == 1 && len(parts[1]) == 1 {
		return letterRange(rune(parts[0][0]), rune(parts[1][0]))
	}
	return nil, false
}

func numericRange(parts []string) ([]string, bool) {
	start, err1 := strconv.Atoi(parts[0])
	end, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return nil, false
	}
	step := 1
	if len(parts) == 3 {
		st, err := strconv.Atoi(parts[2])
		if err != nil || st == 0 {
			return nil, false
		}
		step = st
		if step < 0 {
			step = -step
		}
	}
	width := 0
	if strings.HasPrefix(parts[0], "0") && len(parts[0]) > 1 {
		width = len(parts[0])
	}
	if strings.HasPrefix(parts[1], "0") && len(parts[1]) > 1 && len(parts[1]) > width {
		width = len(parts[1])
	}
	var out []string
	format := func(n int) string {
		if width > 0 {
			neg := n < 0
			s := strconv.Itoa(n)
			if neg {
				s = s[1:]
			}
			for len(s) < width {
				s = "0" + s
			}
			if neg {
				s = "-" + s
			}
			return s
		}
		return strconv.Itoa(n)
	}
	if start <= end {
		for n := start; n <= end; n += step {
			out = append(out, format(n))
		}
	} else {
		for n := start; n >= end; n -= step {
			out = append(out, format(n))
		}
	}
	return out, true
}

func letterRange(start, end rune) ([]string, bool) {
	var out []string
	if start <= end {
		for c := start; c <= end; c++ {
			out = append(out, fmt.Sprintf("%c", c))
		}
	} else {
		for c := start; c >= end; c-- {
			out = append(out, fmt.Sprintf("%c", c))
		}
	}
	return out, true
}
