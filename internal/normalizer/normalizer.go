// Package normalizer cleans text extracted from exam papers before it is
// segmented into questions.
package normalizer

import (
	"strings"
	"unicode/utf8"
)

// minLineLength is the trimmed length a line must exceed to survive. Shorter
// lines are page numbers, headers and similar extraction noise.
const minLineLength = 3

// Normalize drops every line whose trimmed length is at most three
// characters and joins the remaining lines, untrimmed, with single spaces.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if utf8.RuneCountInString(strings.TrimSpace(line)) > minLineLength {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}

// JoinPages concatenates per-page extracted text, terminating each non-empty
// page with a newline so numbered questions at the top of a page still
// start a line.
func JoinPages(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		if p == "" {
			continue
		}
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.String()
}
