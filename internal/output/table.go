package output

import (
	"bytes"
	"fmt"

	"github.com/KilimcininKorOglu/sonda/internal/ping"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter formats ping results as a detailed per-target table.
type TableFormatter struct {
	config Config
	colors *ColorScheme
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(config Config) *TableFormatter {
	var colors *ColorScheme
	if config.Colors {
		colors = DefaultColorScheme()
	}
	return &TableFormatter{
		config: config,
		colors: colors,
	}
}

// Format formats the results as a summary table, one row per target.
func (f *TableFormatter) Format(results []*ping.Result) ([]byte, error) {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	f.configureTable(table)
	table.SetHeader(f.getHeaders())

	for _, result := range results {
		if result == nil {
			continue
		}
		table.Append(f.formatRow(result))
	}
	table.Render()

	f.writeSummary(&buf, results)
	return buf.Bytes(), nil
}

// configureTable sets up the table appearance.
func (f *TableFormatter) configureTable(table *tablewriter.Table) {
	table.SetBorder(true)
	table.SetRowLine(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("│")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)
	table.SetTablePadding(" ")
}

// getHeaders returns the column headers.
func (f *TableFormatter) getHeaders() []string {
	headers := []string{"Target", "IP Address"}
	if !f.config.NoHostname {
		headers = append(headers, "Hostname")
	}
	headers = append(headers, "Sent", "Recv", "Loss", "Min", "Avg", "Max", "Jitter")
	return headers
}

// formatRow formats one target's aggregate row.
func (f *TableFormatter) formatRow(result *ping.Result) []string {
	s := result.Stats
	row := []string{
		truncateString(result.Target, 30),
		result.ResolvedIP.String(),
	}
	if !f.config.NoHostname {
		hostname := result.Hostname
		if hostname == "" {
			hostname = "-"
		}
		row = append(row, truncateString(hostname, 25))
	}

	row = append(row,
		fmt.Sprintf("%d", s.Sent),
		fmt.Sprintf("%d", s.Received),
		fmt.Sprintf("%.0f%%", s.LossPercent))

	if s.Received > 0 {
		row = append(row,
			f.formatRTT(s.MinRTT),
			f.formatRTT(s.AvgRTT),
			f.formatRTT(s.MaxRTT),
			fmt.Sprintf("%.2f", s.Jitter))
	} else {
		row = append(row, "-", "-", "-", "-")
	}
	return row
}

// formatRTT formats an RTT value with optional coloring.
func (f *TableFormatter) formatRTT(rtt float64) string {
	str := fmt.Sprintf("%.2f", rtt)
	if f.colors != nil {
		switch {
		case rtt < 50:
			str = f.colors.RTTLow.Sprint(str)
		case rtt < 150:
			str = f.colors.RTTMed.Sprint(str)
		default:
			str = f.colors.RTTHigh.Sprint(str)
		}
	}
	return str
}

// writeSummary writes the aggregate line below the table.
func (f *TableFormatter) writeSummary(buf *bytes.Buffer, results []*ping.Result) {
	reached := 0
	total := 0
	for _, result := range results {
		if result == nil {
			continue
		}
		total++
		if result.Reached {
			reached++
		}
	}
	fmt.Fprintf(buf, "\n%d/%d targets reachable\n", reached, total)
}

// ContentType returns the MIME type for table output.
func (f *TableFormatter) ContentType() string {
	return "text/plain"
}

// FileExtension returns the file extension for table output.
func (f *TableFormatter) FileExtension() string {
	return "txt"
}
