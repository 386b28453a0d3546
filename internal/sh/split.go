package sh

import (
	"errors"
	"strings"
)

var (
	errQuote  = errors.New("unterminated quote")
	errEscape = errors.New("trailing backslash")
)

// Split splits s into words the way a POSIX shell does, without expanding
// anything.
//
// Words are separated by unquoted blanks. Single quotes preserve every
// character up to the closing quote. Within double quotes, a backslash
// escapes only $, `, ", \, and newline. Outside quotes, a backslash escapes
// any character, and a backslash-newline pair is removed.
func Split(s string) ([]string, error) {
	var (
		words []string
		word  strings.Builder
		inArg bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case ' ', '\t', '\n':
			if inArg {
				words = append(words, word.String())
				word.Reset()
				inArg = false
			}
		case '\\':
			i++
			if i >= len(s) {
				return nil, errEscape
			}
			if s[i] != '\n' {
				word.WriteByte(s[i])
				inArg = true
			}
		case '\'':
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return nil, errQuote
			}
			word.WriteString(s[i+1 : i+1+end])
			i += end + 1
			inArg = true
		case '"':
			n, err := doubleQuoted(&word, s[i+1:])
			if err != nil {
				return nil, err
			}
			i += n + 1
			inArg = true
		default:
			word.WriteByte(c)
			inArg = true
		}
	}
	if inArg {
		words = append(words, word.String())
	}
	return words, nil
}

// doubleQuoted writes the contents of a double-quoted string to w.
// s starts after the opening quote. It returns the index of the closing
// quote in s.
func doubleQuoted(w *strings.Builder, s string) (int, error) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			return i, nil
		case '\\':
			if i+1 >= len(s) {
				return 0, errQuote
			}
			switch next := s[i+1]; next {
			case '$', '`', '"', '\\':
				w.WriteByte(next)
				i++
			case '\n':
				i++
			default:
				w.WriteByte(c)
			}
		default:
			w.WriteByte(c)
		}
	}
	return 0, errQuote
}
