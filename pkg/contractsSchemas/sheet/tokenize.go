package sheet

import "strings"

// ParseLine splits a single line of comma-separated text into its raw fields.
//
// A double quote toggles between quoted and unquoted content and is never copied into
// the field; there is no "" escape. Commas only separate fields outside of quoted
// content, so an unterminated quote turns the remainder of the line into a single field.
// Every field is whitespace-trimmed and then stripped of one leading and one trailing
// double quote, if present. ParseLine always returns at least one field.
func ParseLine(line string) []string {
	fields := make([]string, 0, strings.Count(line, ",")+1)
	var current strings.Builder
	inQuotes := false

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, cleanField(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	return append(fields, cleanField(current.String()))
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}
