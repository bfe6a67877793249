package utils

import (
	"io"
	"strings"

	"github.com/fatih/color"
)

// Row is one "property : value" line of a table.
type Row struct {
	Property string
	Value    string
}

// WriteTable renders rows under a title in the adbctl style.
func WriteTable(w io.Writer, title string, rows []Row) {
	const width = 60

	color.New(color.FgCyan, color.Bold).Fprintln(w, title)
	io.WriteString(w, strings.Repeat("=", width)+"\n")
	for _, r := range rows {
		color.New(color.FgGreen).Fprintf(w, "%-20s : ", r.Property)
		color.New(color.FgWhite).Fprintln(w, r.Value)
	}
}
