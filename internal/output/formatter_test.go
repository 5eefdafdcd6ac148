package output

import (
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/KilimcininKorOglu/sonda/internal/ping"
)

// sampleResults builds a two-target result set covering success, failure
// and a missing (unresolved) entry.
func sampleResults() []*ping.Result {
	return []*ping.Result{
		{
			Target:     "example.com",
			ResolvedIP: net.IPv4(93, 184, 216, 34),
			Hostname:   "edge.example.com",
			Timestamp:  time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
			Reached:    true,
			Probes: []ping.Probe{
				{Seq: 0, Target: "example.com", From: net.IPv4(93, 184, 216, 34), RTT: 11.2, Responded: true, Status: "ok"},
				{Seq: 1, Target: "example.com", RTT: -1, Status: "timeout"},
				{Seq: 2, Target: "example.com", From: net.IPv4(93, 184, 216, 34), RTT: 13.8, Responded: true, Status: "ok"},
			},
			Stats: ping.Stats{Sent: 3, Received: 2, LossPercent: 33.3, MinRTT: 11.2, AvgRTT: 12.5, MaxRTT: 13.8, Jitter: 2.6},
		},
		nil,
		{
			Target:     "192.0.2.1",
			ResolvedIP: net.IPv4(192, 0, 2, 1),
			Timestamp:  time.Date(2026, 8, 24, 10, 0, 5, 0, time.UTC),
			Probes: []ping.Probe{
				{Seq: 0, Target: "192.0.2.1", RTT: -1, Status: "timeout"},
			},
			Stats: ping.Stats{Sent: 1, LossPercent: 100},
		},
	}
}

func TestTextFormatter(t *testing.T) {
	f := NewTextFormatter(Config{Colors: false})
	out, err := f.Format(sampleResults())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	text := string(out)
	for _, want := range []string{
		"PING edge.example.com (example.com) (93.184.216.34)",
		"seq=0",
		"time=11.200 ms",
		"timeout",
		"3 packets transmitted, 2 received, 33.3% packet loss",
		"round-trip min/avg/max/jitter = 11.200/12.500/13.800/2.600 ms",
		"--- 192.0.2.1 ping statistics ---",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text output missing %q\noutput:\n%s", want, text)
		}
	}
	// No replies means no round-trip line for the second target.
	if strings.Count(text, "round-trip") != 1 {
		t.Errorf("round-trip lines = %d, want 1", strings.Count(text, "round-trip"))
	}
}

func TestTextFormatterStreamingProbe(t *testing.T) {
	f := NewTextFormatter(Config{Colors: false})
	p := &ping.Probe{Seq: 3, From: net.IPv4(10, 0, 0, 1), RTT: 0.42, Responded: true, Status: "ok"}

	line := f.FormatProbe(p)
	if !strings.Contains(line, "seq=3") || !strings.Contains(line, "0.420 ms") {
		t.Errorf("FormatProbe() = %q", line)
	}
}

func TestTableFormatter(t *testing.T) {
	f := NewTableFormatter(Config{Colors: false})
	out, err := f.Format(sampleResults())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	text := string(out)
	for _, want := range []string{"example.com", "93.184.216.34", "edge.example.com", "1/2 targets reachable"} {
		if !strings.Contains(text, want) {
			t.Errorf("table output missing %q", want)
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	f := NewJSONFormatter(Config{})
	out, err := f.Format(sampleResults())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var decoded []JSONResult
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d results, want 2 (nil entries skipped)", len(decoded))
	}
	if decoded[0].Target != "example.com" || !decoded[0].Reached {
		t.Errorf("first result = %+v", decoded[0])
	}
	if decoded[0].Stats.Received != 2 {
		t.Errorf("received = %d, want 2", decoded[0].Stats.Received)
	}
	if decoded[1].Probes[0].Status != "timeout" {
		t.Errorf("second result probe status = %q", decoded[1].Probes[0].Status)
	}
}

func TestCSVFormatter(t *testing.T) {
	f := NewCSVFormatter(Config{})
	out, err := f.Format(sampleResults())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	// Header plus one row per probe (3 + 1).
	if len(lines) != 5 {
		t.Fatalf("CSV lines = %d, want 5\n%s", len(lines), out)
	}
	if lines[0] != strings.Join(defaultCSVColumns, ",") {
		t.Errorf("CSV header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "11.200") {
		t.Errorf("first data row = %q", lines[1])
	}
}

func TestNewFormatterSelection(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatText, "txt"},
		{FormatTable, "txt"},
		{FormatJSON, "json"},
		{FormatCSV, "csv"},
	}
	for _, tt := range tests {
		f := NewFormatter(tt.format, DefaultConfig())
		if f.FileExtension() != tt.want {
			t.Errorf("NewFormatter(%v).FileExtension() = %q, want %q", tt.format, f.FileExtension(), tt.want)
		}
	}
}

func TestFormatString(t *testing.T) {
	if FormatText.String() != "text" || FormatJSON.String() != "json" {
		t.Error("Format.String() mismatch")
	}
	if Format(99).String() != "unknown" {
		t.Error("unknown format should render as unknown")
	}
}
