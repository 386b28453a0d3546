package mem

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// tr translates the characters of set1 in stdin into those of set2.
func tr(args []string) body {
	set1, set2 := "", ""
	if len(args) >= 2 {
		set1, set2 = args[0], args[1]
	}

	// Build replacement pairs for strings.NewReplacer
	from := expandSet(set1)
	to := expandSet(set2)
	var pairs []string
	for i, r := range from {
		if i < len(to) {
			pairs = append(pairs, string(r), string(to[i]))
		} else if len(to) > 0 {
			// If set2 is shorter, repeat last character
			pairs = append(pairs, string(r), string(to[len(to)-1]))
		}
	}
	replacer := strings.NewReplacer(pairs...)

	return func(
		_ context.Context, stdin io.Reader, stdout, _ io.Writer,
	) error {
		// Whole lines keep multi-byte characters intact.
		br := bufio.NewReader(stdin)
		for {
			line, err := br.ReadString('\n')
			if line != "" {
				if _, werr := io.WriteString(
					stdout, replacer.Replace(line),
				); werr != nil {
					return werr
				}
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

// expandSet expands character ranges like a-z into individual characters.
func expandSet(s string) []rune {
	var result []rune
	runes := []rune(s)

	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && runes[i+1] == '-' {
			// Range detected
			start := runes[i]
			end := runes[i+2]

			// Handle both forward and backward ranges
			if start <= end {
				for r := start; r <= end; r++ {
					result = append(result, r)
				}
			} else {
				for r := start; r >= end; r-- {
					result = append(result, r)
				}
			}
			i += 2 // Skip the '-' and end character
		} else {
			result = append(result, runes[i])
		}
	}

	return result
}
