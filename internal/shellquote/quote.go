// Package shellquote turns argument vectors into shell-safe strings and
// resolves program names against $PATH, the way pkg/remuxcmd builds
// canonical command lines for the remux binary.
package shellquote

import (
	"os"
	"path/filepath"
	"strings"
)

// safeByte reports whether b never needs quoting in a POSIX shell word.
func safeByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '_', '.', '/', '=', ':', '@', '%', '+', '-':
		return true
	}
	return false
}

// Quote returns a shell-safe representation of token. Tokens consisting
// entirely of unambiguous characters are returned verbatim; everything
// else is single-quoted, with embedded single quotes escaped as '\''.
func Quote(token string) string {
	if token == "" {
		return "''"
	}
	safe := true
	for i := 0; i < len(token); i++ {
		if !safeByte(token[i]) {
			safe = false
			break
		}
	}
	if safe {
		return token
	}
	return "'" + strings.ReplaceAll(token, "'", `'\''`) + "'"
}

// QuoteAll returns the space-joined Quote() of every member of tokens.
func QuoteAll(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = Quote(t)
	}
	return strings.Join(quoted, " ")
}

// NeedsShell reports whether any argument contains a byte that Quote
// would need to escape, i.e. the argv cannot be passed to exec.Command
// verbatim and still behave like a shell one-liner would.
func NeedsShell(argv []string) bool {
	for _, a := range argv {
		if a == "" {
			return true
		}
		for i := 0; i < len(a); i++ {
			if !safeByte(a[i]) {
				return true
			}
		}
	}
	return false
}

// Which searches every entry of $PATH for an executable regular file
// named name, returning the ordered list of matches. An empty PATH entry
// resolves to the current directory, matching POSIX shell behavior.
func Which(name string) []string {
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		if isExecutableFile(name) {
			return []string{name}
		}
		return nil
	}

	var matches []string
	for _, dir := range strings.Split(os.Getenv("PATH"), string(os.PathListSeparator)) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		if isExecutableFile(candidate) {
			matches = append(matches, candidate)
		}
	}
	return matches
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
