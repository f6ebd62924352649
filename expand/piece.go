package expand

type pieceKind int

const (
	pLiteral pieceKind = iota
	pParam            // $name, ${name}, ${name:-word}, ...
	pArith            // $(( expr ))
	pCmdSub           // $(cmd) or `cmd`
)

type piece struct {
	kind pieceKind
	text string // raw construct text (without the leading $ / backtick / (( ))
}

// tokenizePieces scans s (one quote-homogeneous segment's logical text) for
// $ and ` constructs, yielding the literal runs between them and the
// constructs themselves untouched for later expansion. This is the
// "post-tokenization pass [that] expands each token by type" of spec §4.4,
// operating on lexer output that has already resolved escapes.
func tokenizePieces(s string) []piece {
	var out []piece
	var lit []rune
	r := []rune(s)
	flush := func() {
		if len(lit) > 0 {
			out = append(out, piece{kind: pLiteral, text: string(lit)})
			lit = lit[:0]
		}
	}
	i := 0
	for i < len(r) {
		switch r[i] {
		case '$':
			if i+1 < len(r) && r[i+1] == '(' {
				if i+2 < len(r) && r[i+2] == '(' {
					end := matchParen(r, i+3, '(', ')', 2)
					flush()
					out = append(out, piece{kind: pArith, text: string(r[i+3 : end-2])})
					i = end
					continue
				}
				end := matchParen(r, i+2, '(', ')', 1)
				flush()
				out = append(out, piece{kind: pCmdSub, text: string(r[i+2 : end-1])})
				i = end
				continue
			}
			end := matchParamRef(r, i)
			flush()
			out = append(out, piece{kind: pParam, text: string(r[i+1 : end])})
			i = end
			continue
		case '`':
			end := i + 1
			for end < len(r) && r[end] != '`' {
				if r[end] == '\\' && end+1 < len(r) {
					end++
				}
				end++
			}
			flush()
			out = append(out, piece{kind: pCmdSub, text: string(r[i+1 : end])})
			i = end + 1
			continue
		default:
			lit = append(lit, r[i])
			i++
		}
	}
	flush()
	return out
}

func matchParen(r []rune, start int, open, close rune, depth int) int {
	i := start
	for i < len(r) {
		switch r[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
		i++
	}
	return len(r)
}

// matchParamRef scans a $name / ${...} construct starting at r[i] == '$'
// and returns the index just past it.
func matchParamRef(r []rune, i int) int {
	start := i
	i++ // consume '$'
	if i < len(r) && r[i] == '{' {
		depth := 1
		i++
		for i < len(r) && depth > 0 {
			switch r[i] {
			case '{':
				depth++
			case '}':
				depth--
			}
			i++
		}
		return i
	}
	if i < len(r) && isSpecialParam(r[i]) {
		return i + 1
	}
	for i < len(r) && isNameRune(r[i], i == start+1) {
		i++
	}
	if i == start+1 {
		return i // lone '$'
	}
	return i
}

func isSpecialParam(r rune) bool {
	switch r {
	case '@', '*', '#', '?', '$', '!', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return true
	}
	return false
}

func isNameRune(r rune, first bool) bool {
	if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
		return true
	}
	if !first && r >= '0' && r <= '9' {
		return true
	}
	return false
}
