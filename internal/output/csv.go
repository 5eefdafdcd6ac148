package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/KilimcininKorOglu/sonda/internal/ping"
)

// CSVFormatter formats ping results as CSV, one row per probe.
type CSVFormatter struct {
	config  Config
	columns []string
}

// Default CSV columns
var defaultCSVColumns = []string{
	"target", "resolved_ip", "hostname", "seq", "from",
	"rtt_ms", "responded", "status",
}

// NewCSVFormatter creates a new CSV formatter.
func NewCSVFormatter(config Config) *CSVFormatter {
	return &CSVFormatter{
		config:  config,
		columns: defaultCSVColumns,
	}
}

// SetColumns allows customizing which columns to include.
func (f *CSVFormatter) SetColumns(columns []string) {
	f.columns = columns
}

// Format formats the results as CSV.
func (f *CSVFormatter) Format(results []*ping.Result) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(f.columns); err != nil {
		return nil, err
	}

	for _, result := range results {
		if result == nil {
			continue
		}
		for i := range result.Probes {
			if err := writer.Write(f.formatRow(result, &result.Probes[i])); err != nil {
				return nil, err
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// formatRow formats a single probe as a CSV row.
func (f *CSVFormatter) formatRow(result *ping.Result, p *ping.Probe) []string {
	row := make([]string, len(f.columns))
	for i, col := range f.columns {
		row[i] = f.getValue(result, p, col)
	}
	return row
}

// getValue returns the value for a specific column.
func (f *CSVFormatter) getValue(result *ping.Result, p *ping.Probe, column string) string {
	switch column {
	case "target":
		return result.Target

	case "resolved_ip":
		return result.ResolvedIP.String()

	case "hostname":
		return result.Hostname

	case "seq":
		return strconv.Itoa(p.Seq)

	case "from":
		if p.From != nil {
			return p.From.String()
		}
		return ""

	case "rtt_ms":
		if !p.Responded {
			return ""
		}
		return fmt.Sprintf("%.3f", p.RTT)

	case "responded":
		if p.Responded {
			return "true"
		}
		return "false"

	case "status":
		return p.Status

	default:
		return ""
	}
}

// ContentType returns the MIME type for CSV output.
func (f *CSVFormatter) ContentType() string {
	return "text/csv"
}

// FileExtension returns the file extension for CSV output.
func (f *CSVFormatter) FileExtension() string {
	return "csv"
}
