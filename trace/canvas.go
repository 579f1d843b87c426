// Package trace renders the per-cycle state of the pipeline as a fixed-column
// table, one column per stage:
//
//	|@ 0x10       I 0x13      |@ 0xc        I 0x208133  |...
//	|@ <- 0x14                |Opcode INT REG           |...
//	|==============================|==============================|...
//
// The table is meant to be read by people. Parse recovers the cells of a
// rendered table so that traces can be compared and checked for format
// stability.
package trace

import (
	"fmt"
	"io"
	"strings"
)

// Layout of the pipeline trace.
const (
	NumStages = 5
	NumLines  = 4
	CellWidth = 30
)

// Stage columns.
const (
	StageFetch = iota
	StageDecode
	StageExecute
	StageMemory
	StageWriteback
)

// Canvas is a grid of text cells, stages wide and lines tall.
type Canvas struct {
	cells [][]string
	lines int
}

// NewCanvas creates a canvas of empty cells.
func NewCanvas(stages, lines int) *Canvas {
	cells := make([][]string, stages)
	for i := range cells {
		cells[i] = make([]string, lines)
	}
	return &Canvas{cells: cells, lines: lines}
}

// Stages returns the number of columns.
func (c *Canvas) Stages() int {
	return len(c.cells)
}

// Lines returns the number of rows.
func (c *Canvas) Lines() int {
	return c.lines
}

// Set writes the cell of a stage and line.
func (c *Canvas) Set(stage, line int, s string) {
	c.cells[stage][line] = s
}

// Get returns the cell of a stage and line.
func (c *Canvas) Get(stage, line int) string {
	return c.cells[stage][line]
}

// String renders the canvas. Every cell is left-justified in CellWidth
// columns; cells that are wider are not truncated.
func (c *Canvas) String() string {
	var sb strings.Builder

	for line := 0; line < c.lines; line++ {
		for stage := range c.cells {
			fmt.Fprintf(&sb, "|%-*s", CellWidth, c.cells[stage][line])
		}
		sb.WriteString("|\n")
	}

	rule := strings.Repeat("=", CellWidth)
	for range c.cells {
		sb.WriteString("|")
		sb.WriteString(rule)
	}
	sb.WriteString("|\n")

	return sb.String()
}

// WriteTo writes the rendered canvas to w.
func (c *Canvas) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, c.String())
	return int64(n), err
}
