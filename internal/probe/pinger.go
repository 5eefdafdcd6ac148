package probe

import (
	"net"
	"time"
)

// Issuer defaults, shared by Pinger and AsyncPinger.
const (
	defaultTTL     = 255
	defaultTimeout = 2000 * time.Millisecond
)

// IPPair is a source and destination address of the same family.
type IPPair struct {
	Src net.IP
	Dst net.IP
}

// Pinger issues probes that block the calling goroutine until a reply
// arrives or the timeout passes. Unlike AsyncPinger it owns its transport
// and should be closed when no longer needed.
type Pinger struct {
	transport Transport
	ttl       int
	df        bool
	timeout   time.Duration

	// per-family codes for listeners that failed to open; codeSuccess
	// means the family is usable
	failCode [2]uint32
}

// NewPinger creates a Pinger. If one address family's listener cannot be
// opened the Pinger is still returned, alongside ErrNoV4 or ErrNoV6, and
// probes on the failed family return a mapped error; if neither family is
// usable the error is ErrNoListeners and no Pinger is returned.
func NewPinger() (*Pinger, error) {
	tr, err4, err6 := newICMPTransport(1)
	if err4 != nil && err6 != nil {
		tr.Close()
		return nil, ErrNoListeners
	}
	p := &Pinger{
		transport: tr,
		ttl:       defaultTTL,
		timeout:   defaultTimeout,
	}
	p.failCode[FamilyV4] = initFailCode(err4)
	p.failCode[FamilyV6] = initFailCode(err6)
	switch {
	case err4 != nil:
		return p, ErrNoV4
	case err6 != nil:
		return p, ErrNoV6
	}
	return p, nil
}

// NewPingerV4 creates a Pinger for IPv4 use, ignoring an IPv6 listener
// failure.
func NewPingerV4() (*Pinger, error) {
	p, err := NewPinger()
	if err == nil || err == ErrNoV6 {
		return p, nil
	}
	if p != nil {
		p.Close()
	}
	return nil, err
}

// NewPingerV6 creates a Pinger for IPv6 use, ignoring an IPv4 listener
// failure.
func NewPingerV6() (*Pinger, error) {
	p, err := NewPinger()
	if err == nil || err == ErrNoV4 {
		return p, nil
	}
	if p != nil {
		p.Close()
	}
	return nil, err
}

// SetTTL sets the IP TTL for future requests.
func (p *Pinger) SetTTL(ttl int) { p.ttl = ttl }

// TTL returns the current IP TTL value.
func (p *Pinger) TTL() int { return p.ttl }

// SetDF sets the IP don't-fragment bit for future requests.
func (p *Pinger) SetDF(df bool) { p.df = df }

// DF returns the current don't-fragment setting.
func (p *Pinger) DF() bool { return p.df }

// SetTimeout sets the per-request timeout for future requests.
func (p *Pinger) SetTimeout(d time.Duration) { p.timeout = d }

// Timeout returns the current per-request timeout.
func (p *Pinger) Timeout() time.Duration { return p.timeout }

// Send4 sends an ICMPv4 echo request to dst and waits for the outcome. On
// success it returns the round-trip time and buf's reply view carries the
// echoed payload.
func (p *Pinger) Send4(dst net.IP, buf *Buffer) (time.Duration, error) {
	return p.exchange(FamilyV4, nil, dst, buf)
}

// Send4From sends an ICMPv4 echo request from src to dst.
func (p *Pinger) Send4From(src, dst net.IP, buf *Buffer) (time.Duration, error) {
	return p.exchange(FamilyV4, src, dst, buf)
}

// Send6 sends an ICMPv6 echo request to dst.
func (p *Pinger) Send6(dst net.IP, buf *Buffer) (time.Duration, error) {
	return p.exchange(FamilyV6, nil, dst, buf)
}

// Send6From sends an ICMPv6 echo request from src to dst.
func (p *Pinger) Send6From(src, dst net.IP, buf *Buffer) (time.Duration, error) {
	return p.exchange(FamilyV6, src, dst, buf)
}

// Send sends an echo request to dst, picking the family from the address.
func (p *Pinger) Send(dst net.IP, buf *Buffer) (time.Duration, error) {
	return p.exchange(familyOf(dst), nil, dst, buf)
}

// SendFrom sends an echo request from pair.Src to pair.Dst.
func (p *Pinger) SendFrom(pair IPPair, buf *Buffer) (time.Duration, error) {
	return p.exchange(familyOf(pair.Dst), pair.Src, pair.Dst, buf)
}

// exchange runs one blocking probe and extracts its result.
func (p *Pinger) exchange(fam Family, src, dst net.IP, buf *Buffer) (time.Duration, error) {
	if code := p.failCode[fam]; code != codeSuccess {
		return 0, errorFromCode(code)
	}
	buf.initForSend()
	req := &EchoRequest{
		Src:     src,
		Dst:     dst,
		Data:    buf.RequestData,
		Reply:   buf.replyRegion(),
		TTL:     p.ttl,
		DF:      p.df,
		Timeout: p.timeout,
	}
	if code := p.transport.Echo(fam, req); code != codeSuccess {
		return 0, errorFromCode(code)
	}
	return buf.extract(codeGeneralFailure)
}

// Close releases the transport.
func (p *Pinger) Close() error {
	return p.transport.Close()
}
