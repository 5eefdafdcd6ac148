package probe

import (
	"bytes"
	"net"
	"testing"
	"time"
)

func TestBufferInitForSend(t *testing.T) {
	b := NewBufferWithData(make([]byte, 100))
	b.initForSend()

	want := replyHeaderSize + replyOverhead + 100
	if len(b.replyRegion()) != want {
		t.Errorf("reply region = %d bytes, want %d", len(b.replyRegion()), want)
	}
	if b.ReplyData() != nil {
		t.Error("ReplyData() before any reply should be nil")
	}
	if b.RespondingAddr() != nil {
		t.Error("RespondingAddr() before any reply should be nil")
	}
}

func TestBufferInitForSendClearsPreviousReply(t *testing.T) {
	payload := []byte("ping")
	b := NewBufferWithData(payload)
	b.initForSend()
	putReplyRecord(b.replyRegion(), codeSuccess, time.Millisecond, FamilyV4, net.IPv4(10, 0, 0, 1), payload)
	if _, err := b.extract(codeSuccess); err != nil {
		t.Fatalf("extract() error = %v", err)
	}
	if b.ReplyData() == nil {
		t.Fatal("ReplyData() nil after successful extract")
	}

	b.initForSend()
	if b.ReplyData() != nil {
		t.Error("ReplyData() should be nil after re-init")
	}
}

func TestBufferExtractSuccess(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	b := NewBufferWithData(payload)
	b.initForSend()

	responder := net.ParseIP("2001:db8::42")
	putReplyRecord(b.replyRegion(), codeSuccess, 12*time.Millisecond, FamilyV6, responder, payload)

	rtt, err := b.extract(codeSuccess)
	if err != nil {
		t.Fatalf("extract() error = %v", err)
	}
	if rtt != 12*time.Millisecond {
		t.Errorf("rtt = %v, want 12ms", rtt)
	}
	if !bytes.Equal(b.ReplyData(), payload) {
		t.Errorf("ReplyData() = %v, want %v", b.ReplyData(), payload)
	}
	if !b.RespondingAddr().Equal(responder) {
		t.Errorf("RespondingAddr() = %v, want %v", b.RespondingAddr(), responder)
	}
}

func TestBufferExtractErrorStatus(t *testing.T) {
	b := NewBuffer()
	b.initForSend()
	putReplyRecord(b.replyRegion(), codeHostUnreachable, 0, FamilyV4, nil, nil)

	_, err := b.extract(codeSuccess)
	if err != ErrHostUnreachable {
		t.Errorf("extract() error = %v, want ErrHostUnreachable", err)
	}
	if b.ReplyData() != nil {
		t.Error("ReplyData() after an error status should be nil")
	}
}

func TestBufferExtractFallbackCode(t *testing.T) {
	// A region too short for a record falls back to the caller's code.
	b := &Buffer{replyData: make([]byte, 4)}
	_, err := b.extract(codeTimedOut)
	if err != ErrTimeout {
		t.Errorf("extract() error = %v, want ErrTimeout", err)
	}
}
