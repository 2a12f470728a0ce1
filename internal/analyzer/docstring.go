package analyzer

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// evalStringLiteral returns the value of a single Python string literal as
// written in source, including prefix and quotes. ok is false for bytes and
// f-strings, which never count as docstrings.
func evalStringLiteral(text string) (value string, ok bool) {
	q := strings.IndexAny(text, `'"`)
	if q < 0 {
		return "", false
	}
	prefix := strings.ToLower(text[:q])
	if strings.ContainsAny(prefix, "fb") {
		return "", false
	}
	raw := strings.Contains(prefix, "r")

	body := text[q:]
	switch {
	case len(body) >= 6 && (strings.HasPrefix(body, `"""`) || strings.HasPrefix(body, `'''`)):
		body = body[3 : len(body)-3]
	case len(body) >= 2:
		body = body[1 : len(body)-1]
	default:
		return "", false
	}

	body = strings.ReplaceAll(body, "\r\n", "\n")
	if raw {
		return body, true
	}
	return decodeEscapes(body), true
}

// decodeEscapes interprets backslash escapes the way Python does for str
// literals. Unknown escapes and \N{...} are kept verbatim.
func decodeEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := s[i]; e {
		case '\n':
			// line continuation
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 32)
			b.WriteRune(rune(v))
			i = j - 1
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[e]
			if i+1+width > len(s) {
				b.WriteByte('\\')
				b.WriteByte(e)
				continue
			}
			v, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32)
			if err != nil || v > unicode.MaxRune {
				b.WriteByte('\\')
				b.WriteByte(e)
				continue
			}
			b.WriteRune(rune(v))
			i += width
		default:
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String()
}

// cleanDoc normalizes docstring indentation like Python's inspect.cleandoc.
func cleanDoc(doc string) string {
	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		lines[i] = expandTabs(line)
	}

	margin := math.MaxInt
	for _, line := range lines[1:] {
		r := []rune(line)
		content := len([]rune(strings.TrimLeftFunc(line, unicode.IsSpace)))
		if content > 0 {
			margin = min(margin, len(r)-content)
		}
	}

	lines[0] = strings.TrimLeftFunc(lines[0], unicode.IsSpace)
	if margin < math.MaxInt {
		for i := 1; i < len(lines); i++ {
			r := []rune(lines[i])
			if len(r) <= margin {
				lines[i] = ""
			} else {
				lines[i] = string(r[margin:])
			}
		}
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

// expandTabs replaces tabs with spaces up to the next multiple of 8 columns.
func expandTabs(line string) string {
	if !strings.Contains(line, "\t") {
		return line
	}
	var b strings.Builder
	col := 0
	for _, r := range line {
		if r == '\t' {
			n := 8 - col%8
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}
