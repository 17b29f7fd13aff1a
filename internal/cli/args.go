package cli

import (
	"encoding/csv"
	"strings"
)

// splitArgs splits a shell line on spaces. Double quotes group words, and
// a doubled quote inside them is a literal quote.
func splitArgs(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = ' '
	r.LazyQuotes = false
	fields, err := r.Read()
	if err != nil {
		return nil, err
	}
	args := fields[:0]
	for _, f := range fields {
		if f != "" {
			args = append(args, f)
		}
	}
	return args, nil
}
