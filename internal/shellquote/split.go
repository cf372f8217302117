package shellquote

import "strings"

// Split tokenizes a string produced by QuoteAll (or any POSIX-ish shell
// one-liner using only bare words and single-quoted strings with '\''
// escaping) back into its argument vector. It is intentionally narrow:
// it understands exactly the quoting dialect Quote()/QuoteAll() emit,
// not the full POSIX shell grammar (no double quotes, no $VAR expansion,
// no globbing) — callers needing that reach for os/exec + bash -c
// instead of parsing shell syntax in-process.
func Split(s string) []string {
	var tokens []string
	var cur strings.Builder
	inWord := false
	i := 0
	n := len(s)

	flush := func() {
		if inWord {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inWord = false
		}
	}

	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			flush()
			i++
		case c == '\'':
			// Raw single-quoted span: copied verbatim until the next '.
			inWord = true
			i++
			for i < n && s[i] != '\'' {
				cur.WriteByte(s[i])
				i++
			}
			if i < n {
				i++ // closing quote
			}
		case c == '\\' && i+1 < n:
			// Outside quotes, backslash escapes the following byte literally.
			inWord = true
			cur.WriteByte(s[i+1])
			i += 2
		default:
			inWord = true
			cur.WriteByte(c)
			i++
		}
	}
	flush()
	return tokens
}
