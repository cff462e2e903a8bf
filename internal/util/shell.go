// Package util provides shell quoting helpers shared by the remote command
// builder and the remote-shell simulator used in tests.
package util

import (
	"fmt"
	"strings"
)

// ShellQuote wraps a string in single quotes, escaping any existing single quotes.
// This is safe for use in shell commands where the string should be treated literally.
func ShellQuote(s string) string {
	// Replace ' with '\'' (end quote, escaped quote, start quote)
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// ShellQuotePreserveTilde quotes a path for remote execution while keeping
// tilde expansion. For paths starting with ~/ the tilde stays unquoted and
// the rest is single-quoted; other paths are quoted whole.
func ShellQuotePreserveTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		return "~/" + ShellQuote(path[2:])
	}
	if path == "~" {
		return "~"
	}
	return ShellQuote(path)
}

// ShellQuotePaths quotes each path with ShellQuotePreserveTilde and joins
// them with spaces.
func ShellQuotePaths(paths ...string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = ShellQuotePreserveTilde(p)
	}
	return strings.Join(quoted, " ")
}

// ShellSplit splits a command line into words the way a POSIX shell would
// for the subset of syntax produced by the quoting helpers above: unquoted
// words, single-quoted spans, backslash escapes outside quotes, and the
// operators &&, >> and >. Operators are returned as their own words.
// Nothing is expanded, so "~/'x'" comes back as "~/x".
func ShellSplit(cmd string) ([]string, error) {
	var (
		words   []string
		cur     strings.Builder
		inWord  bool
		inQuote bool
	)

	flush := func() {
		if inWord {
			words = append(words, cur.String())
			cur.Reset()
			inWord = false
		}
	}

	for i := 0; i < len(cmd); i++ {
		c := cmd[i]

		if inQuote {
			if c == '\'' {
				inQuote = false
				continue
			}
			cur.WriteByte(c)
			continue
		}

		switch {
		case c == '\'':
			inQuote = true
			inWord = true
		case c == '\\':
			if i+1 < len(cmd) {
				i++
				cur.WriteByte(cmd[i])
				inWord = true
			}
		case c == ' ' || c == '\t' || c == '\n':
			flush()
		case c == '&' && i+1 < len(cmd) && cmd[i+1] == '&':
			flush()
			words = append(words, "&&")
			i++
		case c == '>':
			flush()
			if i+1 < len(cmd) && cmd[i+1] == '>' {
				words = append(words, ">>")
				i++
			} else {
				words = append(words, ">")
			}
		default:
			cur.WriteByte(c)
			inWord = true
		}
	}

	if inQuote {
		return nil, fmt.Errorf("unterminated single quote in %q", cmd)
	}
	flush()
	return words, nil
}
