package trace

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned by Parse for text that is not a rendered canvas.
var ErrMalformed = errors.New("malformed trace")

// Parse recovers the cells of one rendered canvas. Padding is removed, so
// cells with trailing spaces do not round-trip. The separator rule ends the
// canvas; text after it is ignored.
func Parse(text string) (*Canvas, error) {
	var rows [][]string

	for i, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		if isRule(line) {
			return newCanvasFromRows(rows)
		}

		if len(line) < 2 || line[0] != '|' || line[len(line)-1] != '|' {
			return nil, fmt.Errorf("%w: line %d is not a table row", ErrMalformed, i+1)
		}

		cells := strings.Split(line[1:len(line)-1], "|")
		for j := range cells {
			cells[j] = strings.TrimRight(cells[j], " ")
		}

		if len(rows) > 0 && len(cells) != len(rows[0]) {
			return nil, fmt.Errorf("%w: line %d has %d cells, expected %d",
				ErrMalformed, i+1, len(cells), len(rows[0]))
		}
		rows = append(rows, cells)
	}

	return nil, fmt.Errorf("%w: missing separator rule", ErrMalformed)
}

func isRule(line string) bool {
	return strings.HasPrefix(line, "|=") &&
		strings.Trim(line, "|=") == ""
}

func newCanvasFromRows(rows [][]string) (*Canvas, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows before separator rule", ErrMalformed)
	}

	c := NewCanvas(len(rows[0]), len(rows))
	for line, cells := range rows {
		for stage, cell := range cells {
			c.Set(stage, line, cell)
		}
	}
	return c, nil
}
