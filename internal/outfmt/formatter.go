package outfmt

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"
)

// MaxCellWidth bounds a table cell. Item titles and descriptions may be up
// to 255 characters, which would push every other column off screen.
const MaxCellWidth = 60

var cellReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// Formatter handles output formatting for commands.
type Formatter struct {
	ctx       context.Context
	out       io.Writer
	errOut    io.Writer
	tabWriter *tabwriter.Writer
}

// NewFormatter creates a new Formatter
func NewFormatter(ctx context.Context, out, errOut io.Writer) *Formatter {
	return &Formatter{
		ctx:       ctx,
		out:       out,
		errOut:    errOut,
		tabWriter: tabwriter.NewWriter(out, 0, 4, 2, ' ', 0),
	}
}

// Output writes data as JSON when the context asks for it, applying the
// context query. In text mode it writes nothing.
func (f *Formatter) Output(data any) error {
	if !IsJSON(f.ctx) {
		return nil
	}
	return WriteJSONFiltered(f.out, data, GetQuery(f.ctx), IsCompact(f.ctx))
}

// StartTable writes table headers. Returns true if in text mode.
func (f *Formatter) StartTable(headers []string) bool {
	if IsJSON(f.ctx) {
		return false
	}
	f.Row(headers...)
	return true
}

// Row writes a single row to the table. Cells are flattened to one line and
// truncated to MaxCellWidth.
func (f *Formatter) Row(columns ...string) {
	for i, col := range columns {
		if i > 0 {
			_, _ = fmt.Fprint(f.tabWriter, "\t")
		}
		_, _ = fmt.Fprint(f.tabWriter, Cell(col))
	}
	_, _ = fmt.Fprintln(f.tabWriter)
}

// Cell prepares a value for a table column. Empty values render as "-".
func Cell(s string) string {
	s = strings.TrimSpace(cellReplacer.Replace(s))
	if s == "" {
		return "-"
	}
	if utf8.RuneCountInString(s) <= MaxCellWidth {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxCellWidth-3]) + "..."
}

// EndTable flushes the table output.
func (f *Formatter) EndTable() error {
	return f.tabWriter.Flush()
}

// Paging notes on stderr that a listing holds only part of the collection.
func (f *Formatter) Paging(shown, total int, noun string) {
	if IsJSON(f.ctx) || total <= shown {
		return
	}
	_, _ = fmt.Fprintf(f.errOut, "Showing %d of %d %s\n", shown, total, noun)
}

// Empty writes a message to stderr indicating no results.
func (f *Formatter) Empty(message string) {
	_, _ = fmt.Fprintln(f.errOut, message)
}
