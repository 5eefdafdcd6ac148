package probe

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestRegisterStampsSendTime(t *testing.T) {
	tr := &icmpTransport{
		pending: make(map[uint16]*pendingEcho),
		compc:   make(chan any, 1),
	}

	before := time.Now()
	pe := tr.register(FamilyV4, &EchoRequest{}, nil, make(chan struct{}))

	// The timestamp must exist before the entry is visible in the pending
	// table; a reply that beats the sender back to the lock would otherwise
	// compute its RTT from the zero time.
	if pe.sent.IsZero() || pe.sent.Before(before) {
		t.Errorf("sent = %v, want stamped at registration", pe.sent)
	}
	if got := tr.lookup(FamilyV4, pe.seq); got != pe {
		t.Error("registered exchange not visible to lookup")
	}
}

// buildQuotedV4 builds the original-packet quote an ICMPv4 error carries:
// IPv4 header followed by the first 8 bytes of our echo request.
func buildQuotedV4(id, seq uint16) []byte {
	b := make([]byte, 28)
	b[0] = 0x45 // version 4, IHL 5
	b[20] = 8   // echo request
	binary.BigEndian.PutUint16(b[24:26], id)
	binary.BigEndian.PutUint16(b[26:28], seq)
	return b
}

// buildQuotedV6 builds the ICMPv6 equivalent: IPv6 header plus echo header.
func buildQuotedV6(id, seq uint16) []byte {
	b := make([]byte, 48)
	b[0] = 0x60
	b[6] = protoICMPv6
	b[40] = 128 // echo request
	binary.BigEndian.PutUint16(b[44:46], id)
	binary.BigEndian.PutUint16(b[46:48], seq)
	return b
}

func TestQuotedEchoSeq(t *testing.T) {
	if seq, ok := quotedEchoSeq(FamilyV4, buildQuotedV4(0x1234, 77), 0x1234); !ok || seq != 77 {
		t.Errorf("v4 quote: seq=%d ok=%v, want 77 true", seq, ok)
	}
	if seq, ok := quotedEchoSeq(FamilyV6, buildQuotedV6(0x1234, 88), 0x1234); !ok || seq != 88 {
		t.Errorf("v6 quote: seq=%d ok=%v, want 88 true", seq, ok)
	}
}

func TestQuotedEchoSeqRejectsForeign(t *testing.T) {
	if _, ok := quotedEchoSeq(FamilyV4, buildQuotedV4(0x9999, 77), 0x1234); ok {
		t.Error("accepted a quote with someone else's identifier")
	}
	if _, ok := quotedEchoSeq(FamilyV4, []byte{0x45, 0, 0}, 0x1234); ok {
		t.Error("accepted a truncated quote")
	}
	// Quote of a non-echo message (e.g. our own error) must not match.
	q := buildQuotedV4(0x1234, 77)
	q[20] = 3
	if _, ok := quotedEchoSeq(FamilyV4, q, 0x1234); ok {
		t.Error("accepted a quote of a non-echo message")
	}
	q6 := buildQuotedV6(0x1234, 88)
	q6[6] = 17 // UDP, not ICMPv6
	if _, ok := quotedEchoSeq(FamilyV6, q6, 0x1234); ok {
		t.Error("accepted a v6 quote of a non-ICMPv6 packet")
	}
}

func TestUnreachStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"v4 net", unreachStatusV4(0), codeNetUnreachable},
		{"v4 host", unreachStatusV4(1), codeHostUnreachable},
		{"v4 protocol", unreachStatusV4(2), codeProtocolUnreachable},
		{"v4 frag needed", unreachStatusV4(4), codePacketTooBig},
		{"v6 no route", unreachStatusV6(0), codeNetUnreachable},
		{"v6 addr", unreachStatusV6(3), codeHostUnreachable},
		{"transit", timeExceededStatus(0), codeTTLExpiredTransit},
		{"reassembly", timeExceededStatus(1), codeTTLExpiredReassembly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("status = %d, want %d", tt.got, tt.want)
			}
		})
	}
}
