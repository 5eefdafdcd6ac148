package output

import (
	"encoding/json"

	"github.com/KilimcininKorOglu/sonda/internal/ping"
)

// JSONFormatter formats ping results as JSON.
type JSONFormatter struct {
	config Config
	pretty bool
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(config Config) *JSONFormatter {
	return &JSONFormatter{
		config: config,
		pretty: true, // Default to pretty-printed
	}
}

// NewJSONFormatterCompact creates a JSON formatter with compact output.
func NewJSONFormatterCompact(config Config) *JSONFormatter {
	return &JSONFormatter{config: config}
}

// SetPretty enables or disables pretty-printing.
func (f *JSONFormatter) SetPretty(pretty bool) {
	f.pretty = pretty
}

// Format formats the results as JSON.
func (f *JSONFormatter) Format(results []*ping.Result) ([]byte, error) {
	output := make([]*JSONResult, 0, len(results))
	for _, result := range results {
		if result == nil {
			continue
		}
		output = append(output, f.toJSONResult(result))
	}

	if f.pretty {
		return json.MarshalIndent(output, "", "  ")
	}
	return json.Marshal(output)
}

// JSONResult is the JSON-serializable representation of one target's result.
type JSONResult struct {
	Target     string      `json:"target"`
	ResolvedIP string      `json:"resolved_ip"`
	Hostname   string      `json:"hostname,omitempty"`
	Timestamp  string      `json:"timestamp"`
	Async      bool        `json:"async"`
	Reached    bool        `json:"reached"`
	Probes     []JSONProbe `json:"probes"`
	Stats      JSONStats   `json:"stats"`
}

// JSONProbe represents a single probe in JSON format.
type JSONProbe struct {
	Seq       int     `json:"seq"`
	From      string  `json:"from,omitempty"`
	RTT       float64 `json:"rtt_ms"`
	Responded bool    `json:"responded"`
	Status    string  `json:"status"`
}

// JSONStats represents per-target statistics in JSON format.
type JSONStats struct {
	Sent        int     `json:"sent"`
	Received    int     `json:"received"`
	LossPercent float64 `json:"loss_percent"`
	MinRTT      float64 `json:"min_rtt_ms"`
	AvgRTT      float64 `json:"avg_rtt_ms"`
	MaxRTT      float64 `json:"max_rtt_ms"`
	Jitter      float64 `json:"jitter_ms"`
}

// toJSONResult converts a Result to JSONResult.
func (f *JSONFormatter) toJSONResult(result *ping.Result) *JSONResult {
	out := &JSONResult{
		Target:     result.Target,
		ResolvedIP: result.ResolvedIP.String(),
		Hostname:   result.Hostname,
		Timestamp:  result.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Async:      result.Async,
		Reached:    result.Reached,
		Probes:     make([]JSONProbe, len(result.Probes)),
		Stats: JSONStats{
			Sent:        result.Stats.Sent,
			Received:    result.Stats.Received,
			LossPercent: roundFloat(result.Stats.LossPercent, 1),
			MinRTT:      roundFloat(result.Stats.MinRTT, 3),
			AvgRTT:      roundFloat(result.Stats.AvgRTT, 3),
			MaxRTT:      roundFloat(result.Stats.MaxRTT, 3),
			Jitter:      roundFloat(result.Stats.Jitter, 3),
		},
	}

	for i, p := range result.Probes {
		jp := JSONProbe{
			Seq:       p.Seq,
			RTT:       roundFloat(p.RTT, 3),
			Responded: p.Responded,
			Status:    p.Status,
		}
		if p.From != nil {
			jp.From = p.From.String()
		}
		out.Probes[i] = jp
	}
	return out
}

// ContentType returns the MIME type for JSON output.
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// FileExtension returns the file extension for JSON output.
func (f *JSONFormatter) FileExtension() string {
	return "json"
}

// Helper function to round floats
func roundFloat(val float64, precision int) float64 {
	if val < 0 {
		return val
	}
	p := float64(1)
	for i := 0; i < precision; i++ {
		p *= 10
	}
	return float64(int(val*p+0.5)) / p
}
