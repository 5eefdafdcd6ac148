// Package ping runs ICMP echo sessions against one or more targets.
package ping

import (
	"net"
	"time"
)

// Probe represents a single echo request and its outcome.
type Probe struct {
	// Seq is the request sequence number within the session, starting at 0
	Seq int `json:"seq"`

	// Target is the original target this probe belongs to
	Target string `json:"target"`

	// From is the address that answered; usually the target, but ICMP
	// errors can come from an intermediate router
	From net.IP `json:"from,omitempty"`

	// RTT is the round-trip time in milliseconds; -1 on failure
	RTT float64 `json:"rtt_ms"`

	// Responded indicates the probe got an echo reply
	Responded bool `json:"responded"`

	// Status is a short outcome label: "ok", "timeout",
	// "host unreachable" and so on
	Status string `json:"status"`
}

// Stats contains aggregate statistics for one target.
type Stats struct {
	// Sent is the number of requests issued
	Sent int `json:"sent"`

	// Received is the number of echo replies
	Received int `json:"received"`

	// LossPercent is the packet loss percentage (0-100)
	LossPercent float64 `json:"loss_percent"`

	// MinRTT is the minimum RTT in milliseconds
	MinRTT float64 `json:"min_rtt"`

	// AvgRTT is the average RTT in milliseconds
	AvgRTT float64 `json:"avg_rtt"`

	// MaxRTT is the maximum RTT in milliseconds
	MaxRTT float64 `json:"max_rtt"`

	// Jitter is the difference between max and min RTT
	Jitter float64 `json:"jitter"`
}

// Result contains the complete result of pinging one target.
type Result struct {
	// Target is the original target (hostname or IP)
	Target string `json:"target"`

	// ResolvedIP is the resolved IP address of the target
	ResolvedIP net.IP `json:"resolved_ip"`

	// Hostname is the reverse DNS name of the target (if resolved)
	Hostname string `json:"hostname,omitempty"`

	// Timestamp is when the session started
	Timestamp time.Time `json:"timestamp"`

	// Async indicates the requests were issued through the shared queue
	Async bool `json:"async"`

	// Probes contains every request's outcome in sequence order
	Probes []Probe `json:"probes"`

	// Reached indicates at least one probe got an echo reply
	Reached bool `json:"reached"`

	// Stats contains aggregate statistics
	Stats Stats `json:"stats"`
}

// calculateStats aggregates per-probe outcomes. Probes with a negative RTT
// are failures and excluded from the RTT figures.
func calculateStats(probes []Probe) Stats {
	s := Stats{Sent: len(probes)}

	var sum float64
	for _, p := range probes {
		if !p.Responded {
			continue
		}
		if s.Received == 0 {
			s.MinRTT = p.RTT
			s.MaxRTT = p.RTT
		} else {
			if p.RTT < s.MinRTT {
				s.MinRTT = p.RTT
			}
			if p.RTT > s.MaxRTT {
				s.MaxRTT = p.RTT
			}
		}
		sum += p.RTT
		s.Received++
	}

	if s.Received > 0 {
		s.AvgRTT = sum / float64(s.Received)
		s.Jitter = s.MaxRTT - s.MinRTT
	}
	if s.Sent > 0 {
		s.LossPercent = float64(s.Sent-s.Received) / float64(s.Sent) * 100
	}
	return s
}
