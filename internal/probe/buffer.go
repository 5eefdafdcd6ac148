package probe

import (
	"net"
	"time"
)

// Buffer holds request and reply data for probes. RequestData is caller
// owned between sends; while a probe is in flight the whole buffer belongs
// to the request and must not be touched. A Buffer is not safe for use by
// two in-flight probes at once.
type Buffer struct {
	// RequestData is the payload to send. Callers may modify it freely
	// between sends.
	RequestData []byte

	replyData []byte
	filled    bool
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// NewBufferWithData creates a Buffer carrying the given request payload.
func NewBufferWithData(data []byte) *Buffer {
	return &Buffer{RequestData: data}
}

// initForSend sizes the reply region for the worst case reply record and
// clears any previous reply. Called by the issuers before every send.
func (b *Buffer) initForSend() {
	size := replyHeaderSize + replyOverhead + len(b.RequestData)
	if cap(b.replyData) < size {
		b.replyData = make([]byte, size)
	} else {
		b.replyData = b.replyData[:size]
		for i := range b.replyData {
			b.replyData[i] = 0
		}
	}
	b.filled = false
}

// replyRegion returns the raw reply region handed to the transport.
func (b *Buffer) replyRegion() []byte {
	return b.replyData
}

// extract interprets the reply region after a completed exchange. On a
// success status it marks the buffer filled and returns the round-trip
// time; any other status comes back as an error from the closed set, with
// the reply view left empty. A region with no parseable record yields the
// error mapped from fallback, which must be a failure code, never the
// success sentinel.
func (b *Buffer) extract(fallback uint32) (time.Duration, error) {
	rec, ok := parseReplyRecord(b.replyData)
	if !ok {
		return 0, errorFromCode(fallback)
	}
	if rec.status != codeSuccess {
		return 0, errorFromStatus(rec.status)
	}
	b.filled = true
	return rec.rtt, nil
}

// ReplyData returns a view of the echoed payload from the last successful
// probe, or an empty slice if the last probe failed. The view aliases the
// buffer and is invalidated by the next send.
func (b *Buffer) ReplyData() []byte {
	if !b.filled {
		return nil
	}
	rec, ok := parseReplyRecord(b.replyData)
	if !ok {
		return nil
	}
	return rec.payload
}

// RespondingAddr returns the address that answered the last successful
// probe, or nil if the last probe failed.
func (b *Buffer) RespondingAddr() net.IP {
	if !b.filled {
		return nil
	}
	rec, ok := parseReplyRecord(b.replyData)
	if !ok {
		return nil
	}
	return rec.responder
}
