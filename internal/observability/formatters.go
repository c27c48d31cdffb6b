package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/inventory-sync/internal/ingest"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for CLI commands
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCycleResult outputs the counters of one ingestion cycle and the ids it credited.
func (p *Printer) PrintCycleResult(result ingest.CycleResult) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Cycle:      %s\n", result.CycleID))
	sb.WriteString(fmt.Sprintf("Fetched:    %d\n", result.Fetched))
	sb.WriteString(fmt.Sprintf("Skipped:    %d\n", result.Skipped))
	if result.Abandoned > 0 {
		sb.WriteString(fmt.Sprintf("Abandoned:  %d\n", result.Abandoned))
	}
	sb.WriteString(fmt.Sprintf("Extracted:  %d\n", result.Extracted))
	sb.WriteString(fmt.Sprintf("Failed:     %d\n", result.Failed))
	sb.WriteString(fmt.Sprintf("Items:      %d\n", result.Items))

	if len(result.NewIDs) > 0 {
		sb.WriteString("\nNewly processed:\n")
		writeList(&sb, result.NewIDs)
	}

	p.printBox("INGESTION CYCLE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProcessedIDs outputs the number of durable ids. With all set every id is listed,
// otherwise only the first few.
func (p *Printer) PrintProcessedIDs(ids []string, all bool) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Processed messages: %d\n", len(ids)))

	if all {
		//nolint:errcheck // writing to stdout; errors are not recoverable
		fmt.Fprint(p.out, sb.String())
		for _, id := range ids {
			//nolint:errcheck // writing to stdout; errors are not recoverable
			fmt.Fprintln(p.out, id)
		}
		return
	}

	if len(ids) > 0 {
		sb.WriteString("\n")
		writeList(&sb, ids)
	}
	p.printBox("PROCESSED MESSAGE IDS", strings.TrimSuffix(sb.String(), "\n"))
}

func writeList(sb *strings.Builder, values []string) {
	count := min(len(values), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", values[i]))
	}
	if len(values) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(values)-maxItemsToShow))
	}
}
