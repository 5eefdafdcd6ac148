package probe

import (
	"encoding/binary"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// IP protocol numbers for ICMP and ICMPv6.
const (
	protoICMP   = 1
	protoICMPv6 = 58
)

// familyConn is one address family's listener plus the family-specific
// option surface.
type familyConn struct {
	pc    net.PacketConn
	p4    *ipv4.PacketConn // nil for v6
	p6    *ipv6.PacketConn // nil for v4
	raw   bool             // raw IP socket (vs unprivileged datagram)
	sysc  syscall.Conn     // for sockopts; nil in datagram mode
	proto int
}

// pendingEcho is one in-flight exchange registered with the demultiplexer.
// Exactly one of token (async) or done (sync) is set.
type pendingEcho struct {
	fam   Family
	req   *EchoRequest
	seq   uint16
	token any
	done  chan struct{}
	sent  time.Time
	timer *time.Timer
}

// icmpTransport implements Transport over x/net ICMP sockets. A
// demultiplexer goroutine per family matches replies (and ICMP errors
// quoting our echo header) to pending requests by sequence number, writes
// the reply record, and posts async completion tokens. Requests that see
// nothing before their timeout are finished by a timer with the timed-out
// status.
type icmpTransport struct {
	conns [2]*familyConn
	id    uint16
	seq   uint32 // atomic

	mu      sync.Mutex
	pending map[uint16]*pendingEcho
	sendMu  [2]sync.Mutex // serializes TTL/DF sockopts with the write

	compc  chan any
	closed atomic.Bool
}

// newICMPTransport opens listeners for both address families and starts
// their demultiplexers. A family that cannot be opened is reported via its
// error and left nil; the transport is always returned so the other family
// stays usable.
func newICMPTransport(queueCapacity int) (*icmpTransport, error, error) {
	if queueCapacity < 1 {
		queueCapacity = 1
	}
	t := &icmpTransport{
		id:      uint16(os.Getpid() & 0xffff),
		pending: make(map[uint16]*pendingEcho),
		compc:   make(chan any, queueCapacity),
	}

	var err4, err6 error
	t.conns[FamilyV4], err4 = openFamilyConn(FamilyV4)
	t.conns[FamilyV6], err6 = openFamilyConn(FamilyV6)

	for fam := FamilyV4; fam <= FamilyV6; fam++ {
		if fc := t.conns[fam]; fc != nil {
			go t.demux(fam, fc)
		}
	}
	return t, err4, err6
}

// openFamilyConn opens one family's listener: a raw ICMP socket when
// privileges allow, otherwise the unprivileged datagram fallback.
func openFamilyConn(fam Family) (*familyConn, error) {
	var network, laddr, dgram string
	proto := protoICMP
	if fam == FamilyV6 {
		network, laddr, dgram = "ip6:ipv6-icmp", "::", "udp6"
		proto = protoICMPv6
	} else {
		network, laddr, dgram = "ip4:icmp", "0.0.0.0", "udp4"
	}

	if c, err := net.ListenPacket(network, laddr); err == nil {
		fc := &familyConn{pc: c, raw: true, proto: proto}
		if sc, ok := c.(syscall.Conn); ok {
			fc.sysc = sc
		}
		if fam == FamilyV6 {
			fc.p6 = ipv6.NewPacketConn(c)
		} else {
			fc.p4 = ipv4.NewPacketConn(c)
		}
		return fc, nil
	}

	// Unprivileged mode. The kernel rewrites the echo identifier and does
	// not surface ICMP errors on this socket, so unreachable outcomes
	// degrade to timeouts here.
	c, err := icmp.ListenPacket(dgram, laddr)
	if err != nil {
		return nil, err
	}
	fc := &familyConn{pc: c, proto: proto}
	if fam == FamilyV6 {
		fc.p6 = c.IPv6PacketConn()
	} else {
		fc.p4 = c.IPv4PacketConn()
	}
	return fc, nil
}

// Completions returns the channel on which async completion tokens are
// delivered. The worker goroutine is the only consumer.
func (t *icmpTransport) Completions() <-chan any {
	return t.compc
}

// Echo performs a blocking exchange.
func (t *icmpTransport) Echo(fam Family, req *EchoRequest) uint32 {
	done := make(chan struct{})
	pe := t.register(fam, req, nil, done)
	if code := t.send(pe); code != codeSuccess {
		t.unregister(pe)
		return code
	}
	<-done
	return codeSuccess
}

// EchoAsync begins an exchange. The token is delivered on Completions once
// the reply record has been written; on a synchronous failure the token is
// dropped and the failure code returned instead.
func (t *icmpTransport) EchoAsync(fam Family, req *EchoRequest, token any) uint32 {
	pe := t.register(fam, req, token, nil)
	if code := t.send(pe); code != codeSuccess {
		t.unregister(pe)
		return code
	}
	return codePending
}

// register allocates a sequence number and enters the exchange into the
// pending table. The send timestamp is taken here, before the entry becomes
// visible, so the demultiplexer's locked lookup always observes it; stamping
// after the write would race a reply that arrives faster than the sender
// returns from the socket call.
func (t *icmpTransport) register(fam Family, req *EchoRequest, token any, done chan struct{}) *pendingEcho {
	pe := &pendingEcho{
		fam:   fam,
		req:   req,
		seq:   uint16(atomic.AddUint32(&t.seq, 1)),
		token: token,
		done:  done,
		sent:  time.Now(),
	}
	t.mu.Lock()
	t.pending[pe.seq] = pe
	t.mu.Unlock()
	return pe
}

// unregister removes a pending exchange after a synchronous send failure.
func (t *icmpTransport) unregister(pe *pendingEcho) {
	t.mu.Lock()
	delete(t.pending, pe.seq)
	timer := pe.timer
	t.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

// send builds and writes the echo request, then arms the timeout timer.
// The family's send lock is held across the TTL/DF sockopts and the write
// so concurrent probes with different options do not interleave.
func (t *icmpTransport) send(pe *pendingEcho) uint32 {
	fc := t.conns[pe.fam]
	if fc == nil || t.closed.Load() {
		return codeGeneralFailure
	}
	req := pe.req

	var typ icmp.Type = ipv4.ICMPTypeEcho
	if pe.fam == FamilyV6 {
		typ = ipv6.ICMPTypeEchoRequest
	}
	msg := &icmp.Message{
		Type: typ,
		Code: 0,
		Body: &icmp.Echo{
			ID:   int(t.id),
			Seq:  int(pe.seq),
			Data: req.Data,
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return codeGeneralFailure
	}

	t.sendMu[pe.fam].Lock()
	err = t.writeRequest(fc, pe.fam, req, wb)
	t.sendMu[pe.fam].Unlock()
	if err != nil {
		if code := errnoCode(err); code != 0 {
			return code
		}
		return codeGeneralFailure
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// Arm the timer only if the demultiplexer has not already finished the
	// exchange; otherwise a stale timer would fire against a reused map
	// slot much later.
	t.mu.Lock()
	if _, ok := t.pending[pe.seq]; ok {
		pe.timer = time.AfterFunc(timeout, func() {
			t.finish(pe, codeTimedOut, 0, nil, nil)
		})
	}
	t.mu.Unlock()
	return codeSuccess
}

// writeRequest applies per-request options and writes the marshaled echo.
func (t *icmpTransport) writeRequest(fc *familyConn, fam Family, req *EchoRequest, wb []byte) error {
	if fam == FamilyV6 {
		if err := fc.p6.SetHopLimit(req.TTL); err != nil {
			return err
		}
		if err := setDontFragment(fc, fam, req.DF); err != nil {
			return err
		}
		var cm *ipv6.ControlMessage
		if req.Src != nil {
			cm = &ipv6.ControlMessage{Src: req.Src}
		}
		_, err := fc.p6.WriteTo(wb, cm, t.destAddr(fc, req.Dst))
		return err
	}

	if err := fc.p4.SetTTL(req.TTL); err != nil {
		return err
	}
	if err := setDontFragment(fc, fam, req.DF); err != nil {
		return err
	}
	var cm *ipv4.ControlMessage
	if req.Src != nil {
		cm = &ipv4.ControlMessage{Src: req.Src}
	}
	_, err := fc.p4.WriteTo(wb, cm, t.destAddr(fc, req.Dst))
	return err
}

// destAddr wraps the destination in the address type the socket expects.
func (t *icmpTransport) destAddr(fc *familyConn, dst net.IP) net.Addr {
	if fc.raw {
		return &net.IPAddr{IP: dst}
	}
	return &net.UDPAddr{IP: dst}
}

// finish completes one exchange exactly once: removes it from the pending
// table, writes the reply record, and signals whichever side is waiting.
// Both the demultiplexer and the timeout timer race into here; the loser
// finds the table entry gone and does nothing.
func (t *icmpTransport) finish(pe *pendingEcho, status uint32, rtt time.Duration, responder net.IP, payload []byte) {
	t.mu.Lock()
	cur, ok := t.pending[pe.seq]
	if !ok || cur != pe {
		t.mu.Unlock()
		return
	}
	delete(t.pending, pe.seq)
	timer := pe.timer
	t.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	putReplyRecord(pe.req.Reply, status, rtt, pe.fam, responder, payload)
	if pe.done != nil {
		close(pe.done)
		return
	}
	t.compc <- pe.token
}

// demux reads one family's socket until it is closed, matching replies and
// ICMP errors to pending exchanges.
func (t *icmpTransport) demux(fam Family, fc *familyConn) {
	rb := make([]byte, 65536)
	for {
		n, peer, err := fc.pc.ReadFrom(rb)
		if err != nil {
			if t.closed.Load() {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
		t.dispatch(fam, rb[:n], peer)
	}
}

// dispatch interprets one inbound message and finishes the matching
// pending exchange, if any. Packets that are not ours are dropped.
func (t *icmpTransport) dispatch(fam Family, data []byte, peer net.Addr) {
	fc := t.conns[fam]
	msg, err := icmp.ParseMessage(fc.proto, data)
	if err != nil {
		return
	}
	peerIP := extractIP(peer)

	switch msg.Type {
	case ipv4.ICMPTypeEchoReply, ipv6.ICMPTypeEchoReply:
		echo, ok := msg.Body.(*icmp.Echo)
		if !ok {
			return
		}
		// In datagram mode the kernel rewrites the identifier, so only
		// the sequence number is matched.
		if fc.raw && uint16(echo.ID) != t.id {
			return
		}
		if pe := t.lookup(fam, uint16(echo.Seq)); pe != nil {
			t.finish(pe, codeSuccess, time.Since(pe.sent), peerIP, echo.Data)
		}

	case ipv4.ICMPTypeDestinationUnreachable:
		body, ok := msg.Body.(*icmp.DstUnreach)
		if !ok {
			return
		}
		t.finishQuoted(fam, body.Data, unreachStatusV4(msg.Code))

	case ipv4.ICMPTypeTimeExceeded:
		body, ok := msg.Body.(*icmp.TimeExceeded)
		if !ok {
			return
		}
		t.finishQuoted(fam, body.Data, timeExceededStatus(msg.Code))

	case ipv6.ICMPTypeDestinationUnreachable:
		body, ok := msg.Body.(*icmp.DstUnreach)
		if !ok {
			return
		}
		t.finishQuoted(fam, body.Data, unreachStatusV6(msg.Code))

	case ipv6.ICMPTypeTimeExceeded:
		body, ok := msg.Body.(*icmp.TimeExceeded)
		if !ok {
			return
		}
		t.finishQuoted(fam, body.Data, timeExceededStatus(msg.Code))

	case ipv6.ICMPTypePacketTooBig:
		body, ok := msg.Body.(*icmp.PacketTooBig)
		if !ok {
			return
		}
		t.finishQuoted(fam, body.Data, codePacketTooBig)
	}
}

// finishQuoted resolves the pending exchange referenced by the echo header
// quoted inside an ICMP error body.
func (t *icmpTransport) finishQuoted(fam Family, quoted []byte, status uint32) {
	seq, ok := quotedEchoSeq(fam, quoted, t.id)
	if !ok {
		return
	}
	if pe := t.lookup(fam, seq); pe != nil {
		t.finish(pe, status, 0, nil, nil)
	}
}

// lookup finds the pending exchange for a sequence number, verifying the
// family matches so a v6 error cannot complete a v4 probe.
func (t *icmpTransport) lookup(fam Family, seq uint16) *pendingEcho {
	t.mu.Lock()
	pe := t.pending[seq]
	t.mu.Unlock()
	if pe == nil || pe.fam != fam {
		return nil
	}
	return pe
}

// Close shuts both listeners; in-flight exchanges finish via their timers.
func (t *icmpTransport) Close() error {
	t.closed.Store(true)
	var err error
	for _, fc := range t.conns {
		if fc == nil {
			continue
		}
		if e := fc.pc.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// quotedEchoSeq extracts the sequence number of our echo request from the
// original-packet quote carried in an ICMP error body.
func quotedEchoSeq(fam Family, data []byte, id uint16) (uint16, bool) {
	var hdr []byte
	if fam == FamilyV6 {
		// IPv6 fixed header is 40 bytes; require ICMPv6 next.
		if len(data) < 48 || data[6] != protoICMPv6 {
			return 0, false
		}
		hdr = data[40:]
		if hdr[0] != byte(ipv6.ICMPTypeEchoRequest) {
			return 0, false
		}
	} else {
		if len(data) < 28 {
			return 0, false
		}
		ihl := int(data[0]&0x0f) * 4
		if len(data) < ihl+8 {
			return 0, false
		}
		hdr = data[ihl:]
		if hdr[0] != byte(ipv4.ICMPTypeEcho) {
			return 0, false
		}
	}
	if binary.BigEndian.Uint16(hdr[4:6]) != id {
		return 0, false
	}
	return binary.BigEndian.Uint16(hdr[6:8]), true
}

// unreachStatusV4 maps an ICMPv4 destination-unreachable code to a status.
func unreachStatusV4(code int) uint32 {
	switch code {
	case 0:
		return codeNetUnreachable
	case 1:
		return codeHostUnreachable
	case 2:
		return codeProtocolUnreachable
	case 4:
		return codePacketTooBig
	default:
		return codeHostUnreachable
	}
}

// unreachStatusV6 maps an ICMPv6 destination-unreachable code to a status.
func unreachStatusV6(code int) uint32 {
	switch code {
	case 0:
		return codeNetUnreachable
	case 3:
		return codeHostUnreachable
	default:
		return codeHostUnreachable
	}
}

// timeExceededStatus maps a time-exceeded code to a status.
func timeExceededStatus(code int) uint32 {
	if code == 1 {
		return codeTTLExpiredReassembly
	}
	return codeTTLExpiredTransit
}

func extractIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	default:
		return nil
	}
}
