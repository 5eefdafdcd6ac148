package ping

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/KilimcininKorOglu/sonda/internal/probe"
)

// blockingSender is the blocking probe surface the session drives;
// implemented by probe.Pinger.
type blockingSender interface {
	SendFrom(pair probe.IPPair, buf *probe.Buffer) (time.Duration, error)
	Close() error
}

// Session pings targets according to its configuration. A Session is safe
// for concurrent use by RunMany's workers.
type Session struct {
	config *Config
	pinger blockingSender     // blocking mode
	async  *probe.AsyncPinger // async mode
}

// New creates a Session. In async mode the process-wide submission queue is
// started on first use; a QueueCapacity set after that point is silently
// ignored, since the queue size is fixed for the life of the process.
func New(config *Config) (*Session, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Session{config: config}

	if config.Async {
		if config.QueueCapacity > 0 {
			if err := probe.SetQueueCapacity(config.QueueCapacity); err != nil && !errors.Is(err, probe.ErrQueueStarted) {
				return nil, err
			}
		}
		s.async = probe.NewAsyncPinger()
		s.async.SetTTL(config.TTL)
		s.async.SetDF(config.DF)
		s.async.SetTimeout(config.Timeout)
		return s, nil
	}

	var p *probe.Pinger
	var err error
	switch {
	case config.IPv6:
		p, err = probe.NewPingerV6()
	case config.IPv4:
		p, err = probe.NewPingerV4()
	default:
		p, err = probe.NewPinger()
		// A single missing family is fine; probes on it fail per-request.
		if errors.Is(err, probe.ErrNoV4) || errors.Is(err, probe.ErrNoV6) {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ICMP listener: %w", err)
	}
	p.SetTTL(config.TTL)
	p.SetDF(config.DF)
	p.SetTimeout(config.Timeout)
	s.pinger = p
	return s, nil
}

// Run pings a single target and returns its result.
func (s *Session) Run(ctx context.Context, target string) (*Result, error) {
	dest, err := s.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Target:     target,
		ResolvedIP: dest,
		Timestamp:  time.Now(),
		Async:      s.config.Async,
	}

	if s.config.Async {
		result.Probes = s.runAsync(ctx, target, dest)
	} else {
		result.Probes = s.runBlocking(ctx, target, dest)
	}

	result.Stats = calculateStats(result.Probes)
	result.Reached = result.Stats.Received > 0
	return result, nil
}

// Close releases the blocking-mode listener. The async worker is
// process-wide and has no shutdown.
func (s *Session) Close() error {
	if s.pinger != nil {
		return s.pinger.Close()
	}
	return nil
}

// resolveTarget resolves a hostname or IP string to a net.IP.
func (s *Session) resolveTarget(ctx context.Context, target string) (net.IP, error) {
	// Check if target is already an IP address
	if ip := net.ParseIP(target); ip != nil {
		if s.config.IPv4 && ip.To4() == nil {
			return nil, fmt.Errorf("%s is an IPv6 address but IPv4 was requested", target)
		}
		if s.config.IPv6 && ip.To4() != nil {
			return nil, fmt.Errorf("%s is an IPv4 address but IPv6 was requested", target)
		}
		return ip, nil
	}

	var network string
	switch {
	case s.config.IPv6:
		network = "ip6"
	case s.config.IPv4:
		network = "ip4"
	default:
		network = "ip"
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, network, target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", target, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTargetResolution, target)
	}

	// Prefer IPv4 unless IPv6 is explicitly requested
	if !s.config.IPv6 {
		for _, ip := range ips {
			if ip.To4() != nil {
				return ip, nil
			}
		}
	}
	return ips[0], nil
}

// runBlocking issues requests one at a time, waiting out the interval
// between them.
func (s *Session) runBlocking(ctx context.Context, target string, dest net.IP) []Probe {
	probes := make([]Probe, 0, s.config.Count)
	buf := probe.NewBuffer()

	for seq := 0; seq < s.config.Count; seq++ {
		select {
		case <-ctx.Done():
			return probes
		default:
		}

		buf.RequestData = payloadPattern(s.config.PayloadSize, seq)
		rtt, err := s.pinger.SendFrom(probe.IPPair{Src: s.config.SourceIP, Dst: dest}, buf)

		p := s.record(seq, target, rtt, err, buf)
		probes = append(probes, p)

		if seq < s.config.Count-1 {
			select {
			case <-ctx.Done():
				return probes
			case <-time.After(s.config.Interval):
			}
		}
	}
	return probes
}

// runAsync issues every request up front through the shared queue and then
// collects the futures in sequence order. The per-request timeout bounds
// the wait, so a canceled context is checked only between collections.
func (s *Session) runAsync(ctx context.Context, target string, dest net.IP) []Probe {
	futs := make([]*probe.Future, s.config.Count)
	for seq := range futs {
		buf := probe.NewBufferWithData(payloadPattern(s.config.PayloadSize, seq))
		futs[seq] = s.async.SendFrom(probe.IPPair{Src: s.config.SourceIP, Dst: dest}, buf)
	}

	probes := make([]Probe, 0, len(futs))
	for seq, fut := range futs {
		res := fut.Await()
		rttMs := float64(res.RTT.Microseconds()) / 1000.0
		p := Probe{Seq: seq, Target: target, RTT: -1, Status: statusOf(res.Err)}
		if res.Err == nil {
			p.RTT = rttMs
			p.Responded = true
			p.From = res.Buffer.RespondingAddr()
		}
		probes = append(probes, p)
		if s.config.OnProbe != nil {
			s.config.OnProbe(&p)
		}
		select {
		case <-ctx.Done():
			return probes
		default:
		}
	}
	return probes
}

// record builds one probe outcome and fires the streaming callback.
func (s *Session) record(seq int, target string, rtt time.Duration, err error, buf *probe.Buffer) Probe {
	p := Probe{Seq: seq, Target: target, RTT: -1, Status: statusOf(err)}
	if err == nil {
		p.RTT = float64(rtt.Microseconds()) / 1000.0
		p.Responded = true
		p.From = buf.RespondingAddr()
	}
	if s.config.OnProbe != nil {
		s.config.OnProbe(&p)
	}
	return p
}

// statusOf renders a probe error as a short outcome label.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, probe.ErrTimeout):
		return "timeout"
	case errors.Is(err, probe.ErrHostUnreachable):
		return "host unreachable"
	case errors.Is(err, probe.ErrNetUnreachable):
		return "network unreachable"
	case errors.Is(err, probe.ErrProtocolUnreachable):
		return "protocol unreachable"
	case errors.Is(err, probe.ErrTTLExpired):
		return "ttl expired"
	case errors.Is(err, probe.ErrReassemblyExpired):
		return "reassembly timeout"
	case errors.Is(err, probe.ErrNeedsFragmented):
		return "needs fragmentation"
	default:
		return err.Error()
	}
}

// payloadPattern fills the echo payload with a rolling byte pattern offset
// by the sequence number, so each probe's reply is distinguishable.
func payloadPattern(size, seq int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(seq + i)
	}
	return b
}
