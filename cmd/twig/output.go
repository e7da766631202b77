package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/odvcencio/twig/pkg/merge"
	"github.com/odvcencio/twig/pkg/object"
)

const shortHashLen = 8

var (
	addedColor    = color.New(color.FgGreen)
	deletedColor  = color.New(color.FgRed)
	modifiedColor = color.New(color.FgYellow)
	conflictColor = color.New(color.FgRed, color.Bold)
	headerColor   = color.New(color.Bold)
	hashColor     = color.New(color.FgYellow)
	branchColor   = color.New(color.FgGreen, color.Bold)
)

func short(h object.Hash) string {
	return h.Short(shortHashLen)
}

func subject(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	return line
}

func formatTime(ts int64) string {
	return time.Unix(ts, 0).Format("2006-01-02 15:04:05 -0700")
}

// changeMarker returns the one-character status prefix and its color.
func changeMarker(t merge.ChangeType) (string, *color.Color) {
	switch t {
	case merge.Added:
		return "+", addedColor
	case merge.Deleted:
		return "-", deletedColor
	default:
		return "~", modifiedColor
	}
}

func printChanges(out io.Writer, changes []merge.Change) {
	for _, c := range changes {
		mark, col := changeMarker(c.Type)
		fmt.Fprintf(out, "  %s\n", col.Sprintf("%s %s", mark, c.Path))
	}
}

func printConflicts(out io.Writer, conflicts []merge.Conflict) {
	for _, c := range conflicts {
		fmt.Fprintf(out, "  %s %s\n", conflictColor.Sprint("CONFLICT"), c.Path)
	}
}

func newTable(out io.Writer, header ...interface{}) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}
