package ping

import (
	"net"
	"time"
)

// Config holds the configuration for a ping session.
type Config struct {
	// Probe settings
	Count       int           // Number of echo requests per target (default: 4)
	Interval    time.Duration // Delay between requests (default: 1s)
	Timeout     time.Duration // Per-request timeout (default: 2s)
	TTL         int           // IP TTL (default: 64)
	DF          bool          // Set the IP don't-fragment bit
	PayloadSize int           // Echo payload size in bytes (default: 56)

	// Network settings
	SourceIP net.IP // Source IP address to use
	IPv4     bool   // Force IPv4
	IPv6     bool   // Force IPv6

	// Mode settings
	Async          bool // Issue all requests up front through the shared queue
	MaxConcurrency int  // Maximum concurrently probed targets (default: 8)

	// QueueCapacity resizes the shared async submission queue; it only
	// takes effect before the first async session in the process.
	QueueCapacity int

	// Enrichment settings
	EnableRDNS bool // Enable reverse DNS lookup on results

	// Callback for real-time probe updates (streaming output)
	OnProbe func(p *Probe) // Called after each probe resolves
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Count:          4,
		Interval:       time.Second,
		Timeout:        2 * time.Second,
		TTL:            64,
		PayloadSize:    56,
		MaxConcurrency: 8,
		EnableRDNS:     true,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Count < 1 {
		return ErrInvalidCount
	}
	if c.Timeout < 100*time.Millisecond {
		return ErrInvalidTimeout
	}
	if c.TTL < 1 || c.TTL > 255 {
		return ErrInvalidTTL
	}
	if c.PayloadSize < 0 || c.PayloadSize > 65500 {
		return ErrInvalidPayloadSize
	}
	if c.IPv4 && c.IPv6 {
		return ErrFamilyConflict
	}
	return nil
}
