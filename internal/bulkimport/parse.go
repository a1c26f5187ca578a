// Package bulkimport turns loosely structured pasted text into idea entries.
package bulkimport

import (
	"regexp"
	"strings"
)

// Entry is one parsed line. Description is empty when the line had no
// separator.
type Entry struct {
	Title       string
	Description string
}

// listMarker matches a leading run of digits and spaces followed by list
// punctuation or bullets, e.g. "12. ", "- ", "★ ".
var listMarker = regexp.MustCompile(`^[\d\s]*[.)\-•★→]*\s*`)

// separators are tried in order; the first that matches wins.
var separators = []*regexp.Regexp{
	regexp.MustCompile(`^(.+?)\s*-\s*(.+)$`),
	regexp.MustCompile(`^(.+?)\s*:\s*(.+)$`),
	regexp.MustCompile(`^(.+?)\s*→\s*(.+)$`),
	regexp.MustCompile(`^(.+?)\s*\|\s*(.+)$`),
}

// Parse splits text into entries, one per non-blank line, in input order.
// Lines that reduce to an empty title are skipped.
func Parse(text string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if e, ok := parseLine(line); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

func parseLine(line string) (Entry, bool) {
	cleaned := listMarker.ReplaceAllString(line, "")

	for _, sep := range separators {
		m := sep.FindStringSubmatch(cleaned)
		if m == nil {
			continue
		}
		title, desc := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if title == "" || desc == "" {
			continue
		}
		return Entry{Title: title, Description: desc}, true
	}

	title := strings.TrimSpace(cleaned)
	if title == "" {
		return Entry{}, false
	}
	return Entry{Title: title}, true
}

// OrderKeys returns n strictly increasing order keys starting at base, one
// per accepted entry.
func OrderKeys(base int64, n int) []int64 {
	keys := make([]int64, n)
	for i := range keys {
		keys[i] = base + int64(i)
	}
	return keys
}
