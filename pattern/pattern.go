// Package pattern is the central utility spec §4.4 calls for: it converts
// a shell glob pattern (`*`, `?`, `[set]`) into an equivalent regular
// expression, with proper escaping of regex metacharacters, for use by
// case-clause matching, pathname expansion, and the `#`/`##`/`%`/`%%`/`/`
// parameter modifiers.
package pattern

import (
	"regexp"
	"strings"
)

// Greed controls whether a `*` converts to a greedy or non-greedy regexp
// quantifier — longest-match modifiers (`##`, `%%`) want greedy, shortest
// (`#`, `%`) want non-greedy.
type Greed int

const (
	Greedy Greed = iota
	Lazy
)

// ToRegexp converts a shell glob into a Go regular expression source
// fragment (unanchored; callers anchor with ^/$ as needed).
func ToRegexp(glob string, greed Greed) string {
	var b strings.Builder
	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '*':
			if greed == Greedy {
				b.WriteString(".*")
			} else {
				b.WriteString(".*?")
			}
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			if j < len(runes) && (runes[j] == '!' || runes[j] == '^') {
				j++
			}
			if j < len(runes) && runes[j] == ']' {
				j++
			}
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				b.WriteString(`\[`)
				continue
			}
			class := runes[i+1 : j]
			b.WriteByte('[')
			k := 0
			if len(class) > 0 && (class[0] == '!' || class[0] == '^') {
				b.WriteByte('^')
				k = 1
			}
			for ; k < len(class); k++ {
				c := class[k]
				if c == '\\' || c == ']' {
					b.WriteByte('\\')
				}
				b.WriteRune(c)
			}
			b.WriteByte(']')
			i = j
		default:
			if strings.ContainsRune(`.+()|^$\{}`, r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Match reports whether name matches the shell glob pattern in its
// entirety (spec §4.4's pathname-expansion and case-clause semantics:
// hidden files only match `*` when the pattern explicitly starts with a
// dot is enforced by the caller, not here — this is pure pattern matching).
func Match(glob, name string) bool {
	re, err := regexp.Compile("^" + ToRegexp(glob, Greedy) + "$")
	if err != nil {
		return glob == name
	}
	return re.MatchString(name)
}

// CompilePrefix returns a regexp matching glob anchored to the start of
// the string, for `${P#pat}` / `${P##pat}`.
func CompilePrefix(glob string, greed Greed) *regexp.Regexp {
	re, err := regexp.Compile("^(" + ToRegexp(glob, greed) + ")")
	if err != nil {
		return regexp.MustCompile("^$")
	}
	return re
}

// CompileSuffix returns a regexp matching glob anchored to the end of the
// string, for `${P/%pat/repl}`-style callers that only ever need the
// longest match (leftmost-match semantics already give that for a single
// greed value). `${P%pat}` / `${P%%pat}` need to distinguish shortest from
// longest and use StripSuffix instead, not this function.
func CompileSuffix(glob string, greed Greed) *regexp.Regexp {
	re, err := regexp.Compile("(" + ToRegexp(glob, greed) + ")$")
	if err != nil {
		return regexp.MustCompile("^$")
	}
	return re
}

// StripSuffix removes the shortest (Lazy) or longest (Greedy) suffix of s
// matching glob in its entirety, implementing `${P%pat}` / `${P%%pat}`.
// A single `$`-anchored regexp cannot tell these apart: regexp search
// always returns the leftmost start position for which a match exists, and
// once a `*` is forced to consume all the way to `$` its greediness no
// longer affects match length, only which start position is tried first —
// so both greed values end up picking the same (leftmost, i.e. longest)
// start. Scanning candidate cut points directly sidesteps that.
func StripSuffix(s, glob string, greed Greed) string {
	re, err := regexp.Compile("^(" + ToRegexp(glob, Greedy) + ")$")
	if err != nil {
		return s
	}
	cuts := runeBoundaries(s)
	if greed == Lazy {
		for i := len(cuts) - 1; i >= 0; i-- {
			if re.MatchString(s[cuts[i]:]) {
				return s[:cuts[i]]
			}
		}
	} else {
		for i := 0; i < len(cuts); i++ {
			if re.MatchString(s[cuts[i]:]) {
				return s[:cuts[i]]
			}
		}
	}
	return s
}

// runeBoundaries returns every valid rune-boundary byte offset in s,
// including 0 and len(s), so suffix candidates never split a multi-byte
// rune.
func runeBoundaries(s string) []int {
	bounds := make([]int, 0, len(s)+1)
	for i := range s {
		bounds = append(bounds, i)
	}
	bounds = append(bounds, len(s))
	return bounds
}

// CompileFull returns a regexp matching glob anywhere in the string, for
// `${P/pat/repl}` / `${P//pat/repl}`.
func CompileFull(glob string, greed Greed) *regexp.Regexp {
	re, err := regexp.Compile(ToRegexp(glob, greed))
	if err != nil {
		return regexp.MustCompile("(?!)")
	}
	return re
}
