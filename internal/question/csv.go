package question

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseCSV reads rows of text, four options, the correct letter, then an
// optional category and an optional time limit in seconds. A first row whose
// sixth column is not a letter A-D is treated as a header.
func ParseCSV(r io.Reader) ([]Input, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var inputs []Input
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}
		if len(record) < 6 {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("csv line %d: expected at least 6 columns, got %d", line, len(record))
		}
		if line == 1 && !isLetter(record[5]) {
			continue
		}

		in := Input{
			Text:    record[0],
			Options: []string{record[1], record[2], record[3], record[4]},
			Correct: strings.ToUpper(strings.TrimSpace(record[5])),
		}
		if len(record) > 6 {
			in.Category = record[6]
		}
		if len(record) > 7 {
			if raw := strings.TrimSpace(record[7]); raw != "" {
				limit, err := strconv.Atoi(raw)
				if err != nil {
					return nil, fmt.Errorf("csv line %d: time limit %q is not a number", line, raw)
				}
				in.TimeLimit = limit
			}
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func isLetter(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "B", "C", "D":
		return true
	}
	return false
}

func isBlank(record []string) bool {
	for _, col := range record {
		if strings.TrimSpace(col) != "" {
			return false
		}
	}
	return true
}
