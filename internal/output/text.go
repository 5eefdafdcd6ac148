package output

import (
	"bytes"
	"fmt"

	"github.com/KilimcininKorOglu/sonda/internal/ping"
	"github.com/fatih/color"
)

// TextFormatter formats ping results in classic ping style.
type TextFormatter struct {
	config Config
	colors *ColorScheme
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(config Config) *TextFormatter {
	var colors *ColorScheme
	if config.Colors {
		colors = DefaultColorScheme()
	}
	return &TextFormatter{
		config: config,
		colors: colors,
	}
}

// Format formats the results as classic ping text output, one block per
// target.
func (f *TextFormatter) Format(results []*ping.Result) ([]byte, error) {
	var buf bytes.Buffer

	for i, result := range results {
		if result == nil {
			continue
		}
		if i > 0 {
			buf.WriteString("\n")
		}
		f.formatResult(&buf, result)
	}
	return buf.Bytes(), nil
}

// formatResult writes one target's header, probe lines and statistics.
func (f *TextFormatter) formatResult(buf *bytes.Buffer, result *ping.Result) {
	target := result.Target
	if result.Hostname != "" && !f.config.NoHostname && result.Hostname != target {
		target = fmt.Sprintf("%s (%s)", result.Hostname, result.Target)
	}
	header := fmt.Sprintf("PING %s (%s)", target, result.ResolvedIP)
	if f.colors != nil {
		header = f.colors.Header.Sprint(header)
	}
	buf.WriteString(header)
	buf.WriteString("\n")

	for i := range result.Probes {
		f.formatProbe(buf, &result.Probes[i])
	}

	f.formatStats(buf, result)
}

// FormatProbe formats a single probe line and returns it as a string.
// This is used for streaming output.
func (f *TextFormatter) FormatProbe(p *ping.Probe) string {
	var buf bytes.Buffer
	f.formatProbe(&buf, p)
	return buf.String()
}

// formatProbe formats one request's outcome line.
func (f *TextFormatter) formatProbe(buf *bytes.Buffer, p *ping.Probe) {
	seq := fmt.Sprintf("seq=%d", p.Seq)
	if f.colors != nil {
		seq = f.colors.Seq.Sprint(seq)
	}

	if !p.Responded {
		status := p.Status
		if f.colors != nil {
			status = f.colors.Failure.Sprint(status)
		}
		fmt.Fprintf(buf, "%s  %s\n", seq, status)
		return
	}

	from := ""
	if p.From != nil {
		fromStr := p.From.String()
		if f.colors != nil {
			fromStr = f.colors.IP.Sprint(fromStr)
		}
		from = fmt.Sprintf("from %s  ", fromStr)
	}
	fmt.Fprintf(buf, "%s  %stime=%s\n", seq, from, f.colorizeRTT(p.RTT))
}

// formatStats writes the per-target statistics block.
func (f *TextFormatter) formatStats(buf *bytes.Buffer, result *ping.Result) {
	s := result.Stats

	line := fmt.Sprintf("--- %s ping statistics ---", result.Target)
	if f.colors != nil {
		line = f.colors.Header.Sprint(line)
	}
	buf.WriteString("\n")
	buf.WriteString(line)
	buf.WriteString("\n")

	fmt.Fprintf(buf, "%d packets transmitted, %d received, %.1f%% packet loss\n",
		s.Sent, s.Received, s.LossPercent)
	if s.Received > 0 {
		fmt.Fprintf(buf, "round-trip min/avg/max/jitter = %.3f/%.3f/%.3f/%.3f ms\n",
			s.MinRTT, s.AvgRTT, s.MaxRTT, s.Jitter)
	}
}

// colorizeRTT returns a colored RTT string based on latency thresholds.
func (f *TextFormatter) colorizeRTT(rtt float64) string {
	str := fmt.Sprintf("%.3f ms", rtt)
	if f.colors == nil {
		return str
	}

	switch {
	case rtt < 50:
		return f.colors.RTTLow.Sprint(str)
	case rtt < 150:
		return f.colors.RTTMed.Sprint(str)
	default:
		return f.colors.RTTHigh.Sprint(str)
	}
}

// ContentType returns the MIME type for text output.
func (f *TextFormatter) ContentType() string {
	return "text/plain"
}

// FileExtension returns the file extension for text output.
func (f *TextFormatter) FileExtension() string {
	return "txt"
}

// ColorScheme defines colors for different output elements.
type ColorScheme struct {
	Seq      *color.Color
	IP       *color.Color
	Hostname *color.Color
	RTTLow   *color.Color // < 50ms
	RTTMed   *color.Color // 50-150ms
	RTTHigh  *color.Color // > 150ms
	Failure  *color.Color
	Header   *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Seq:      color.New(color.FgCyan, color.Bold),
		IP:       color.New(color.FgWhite),
		Hostname: color.New(color.FgGreen),
		RTTLow:   color.New(color.FgGreen),
		RTTMed:   color.New(color.FgYellow),
		RTTHigh:  color.New(color.FgRed),
		Failure:  color.New(color.FgRed, color.Bold),
		Header:   color.New(color.FgWhite, color.Bold),
	}
}

// Helper functions

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
