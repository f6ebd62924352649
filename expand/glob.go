package expand

import (
	"os"
	"path"
	"strings"

	"git.sr.ht/~anton/crux/pattern"
)

// globPattern expands a pathname pattern against the real filesystem,
// component by component, using package pattern for the glob-to-regexp
// translation (spec §4.4's pathname expansion). A leading dot in a
// directory entry only matches a pattern component that itself starts
// with a literal dot, matching POSIX's hidden-file convention.
func globPattern(pat string) ([]string, error) {
	abs := strings.HasPrefix(pat, "/")
	comps := strings.Split(pat, "/")
	start := "."
	if abs {
		start = "/"
		comps = comps[1:]
	}
	results := []string{start}
	for _, c := range comps {
		if c == "" {
			continue
		}
		var next []string
		for _, base := range results {
			entries, err := os.ReadDir(base)
			if err != nil {
				continue
			}
			if !strings.ContainsAny(c, "*?[") {
				full := path.Join(base, c)
				if _, err := os.Stat(full); err == nil {
					next = append(next, full)
				}
				continue
			}
			for _, e := range entries {
				name := e.Name()
				if strings.HasPrefix(name, ".") && !strings.HasPrefix(c, ".") {
					continue
				}
				if pattern.Match(c, name) {
					next = append(next, path.Join(base, name))
				}
			}
		}
		results = next
		if len(results) == 0 {
			return nil, nil
		}
	}
	if !abs {
		for i, r := range results {
			results[i] = strings.TrimPrefix(r, "./")
		}
	}
	return results, nil
}
