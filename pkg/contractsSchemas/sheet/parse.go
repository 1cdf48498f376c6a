// Package sheet parses the comma-separated export of the contracts spreadsheet into
// headers and records.
//
// The export starts with a metadata preamble (title, report date and a spacer row)
// before the header row, so headers and data are located by fixed line offsets that are
// counted after blank lines have been removed.
package sheet

import (
	"fmt"
	"strings"
)

const (
	// DefaultHeaderRow is the index of the header line among non-blank lines.
	DefaultHeaderRow = 3
	// DefaultDataStart is the index of the first data line among non-blank lines.
	DefaultDataStart = 4
	// UntitledHeader replaces header cells that are empty.
	UntitledHeader = "Untitled"
)

// DefaultLayout is the layout of the contracts spreadsheet export.
var DefaultLayout = Layout{HeaderRow: DefaultHeaderRow, DataStart: DefaultDataStart}

// Layout locates the header and data regions of a document.
type Layout struct {
	HeaderRow int
	DataStart int
}

// Sheet is the parsed content of a document.
type Sheet struct {
	Headers []Header `json:"headers"`
	Records []Record `json:"records"`
}

// Parse parses text with DefaultLayout.
func Parse(text string) Sheet {
	return DefaultLayout.Parse(text)
}

// Parse parses the full text of a document.
//
// Parsing never fails: a document with too few non-blank lines to contain a header row
// yields an empty Sheet, missing cells become empty strings, and rows whose cells are
// all empty are dropped. Each record is identified as "row-N", where N is the index of
// its line among the document's non-blank lines.
func (l Layout) Parse(text string) Sheet {
	text = strings.TrimPrefix(text, "\ufeff")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if l.HeaderRow < 0 || len(lines) <= l.HeaderRow {
		return Sheet{Headers: []Header{}, Records: []Record{}}
	}

	headers := dedupeHeaders(ParseLine(lines[l.HeaderRow]))
	cols := newColumns(Keys(headers))

	records := make([]Record, 0, len(lines))
	for i := max(l.DataStart, 0); i < len(lines); i++ {
		row := ParseLine(lines[i])
		if len(row) == 0 {
			continue
		}
		values := make(map[string]string, len(headers))
		for col, h := range headers {
			if col < len(row) {
				values[h.Key] = row[col]
			}
		}
		record := newRecord(fmt.Sprintf("row-%d", i), cols, values)
		if record.IsBlank() {
			continue
		}
		records = append(records, record)
	}

	return Sheet{Headers: headers, Records: records}
}

// dedupeHeaders turns raw header cells into unique headers. The first occurrence of a
// label keeps it; later ones are suffixed "_1", "_2", ... in order of appearance.
// A suffixed key that collides with a literal header keeps counting until it is unique.
func dedupeHeaders(raw []string) []Header {
	headers := make([]Header, 0, len(raw))
	seen := make(map[string]int, len(raw))
	used := make(map[string]bool, len(raw))

	for _, cell := range raw {
		base := strings.TrimSpace(cell)
		if base == "" {
			base = UntitledHeader
		}

		key := base
		n := seen[base]
		if n > 0 || used[key] {
			n = max(n, 1)
			key = fmt.Sprintf("%s_%d", base, n)
			for used[key] {
				n++
				key = fmt.Sprintf("%s_%d", base, n)
			}
		}
		seen[base] = n + 1
		used[key] = true
		headers = append(headers, NewHeader(key))
	}
	return headers
}
