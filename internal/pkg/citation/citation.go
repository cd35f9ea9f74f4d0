// Package citation renders evidence documents as short citation strings.
package citation

import (
	"path"
	"strings"
)

// Document is the citation metadata of an evidence document.
type Document struct {
	Filename string `json:"filename"`
	Title    string `json:"title,omitempty"`
	Authors  string `json:"authors,omitempty"`
	Year     string `json:"year,omitempty"`
}

var (
	authorPlaceholders = map[string]bool{"unknown": true, "affiliations": true}
	yearSentinels      = map[string]bool{"unknown": true, "nan": true, "none": true}
)

// Format returns "{name} ({authors}, {year})", "{name} ({value})" or
// "{name}" depending on which metadata is usable.
func Format(doc Document) string {
	name := strings.TrimSuffix(doc.Filename, path.Ext(doc.Filename))

	authors := strings.TrimSpace(doc.Authors)
	if authorPlaceholders[strings.ToLower(authors)] {
		authors = ""
	}
	year := strings.TrimSpace(doc.Year)
	if yearSentinels[strings.ToLower(year)] {
		year = ""
	}

	switch {
	case authors != "" && year != "":
		return name + " (" + authors + ", " + year + ")"
	case authors != "":
		return name + " (" + authors + ")"
	case year != "":
		return name + " (" + year + ")"
	default:
		return name
	}
}

// Dedup keeps the first item per filename and preserves order.
func Dedup[T any](items []T, filename func(T) string) []T {
	seen := make(map[string]bool, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		fn := filename(it)
		if seen[fn] {
			continue
		}
		seen[fn] = true
		out = append(out, it)
	}
	return out
}
