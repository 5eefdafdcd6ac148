package probe

import (
	"encoding/binary"
	"net"
	"time"
)

// Reply status codes. Codes at or above codeBase describe the reply itself;
// values below codeBase are OS error numbers passed through from a failed
// send. codeSuccess doubles as the "no error" sentinel in both spaces.
const (
	codeSuccess uint32 = 0

	codeBase                 uint32 = 11000
	codeNetUnreachable              = codeBase + 2
	codeHostUnreachable             = codeBase + 3
	codeProtocolUnreachable         = codeBase + 4
	codePacketTooBig                = codeBase + 9
	codeTimedOut                    = codeBase + 10
	codeTTLExpiredTransit           = codeBase + 13
	codeTTLExpiredReassembly        = codeBase + 14
	codeGeneralFailure              = codeBase + 50
	codeMax                         = codeGeneralFailure

	// codePending is the submission return for an accepted async request.
	// It never appears inside a reply record.
	codePending = codeBase + 255
)

// replyHeaderSize is the fixed prefix of a reply record:
//
//	offset 0  status      uint32
//	offset 4  rtt         uint64 (nanoseconds)
//	offset 12 family      uint8
//	offset 13 addr valid  uint8 (0 or 1)
//	offset 14 payload len uint16
//	offset 16 responder   16 bytes (16-byte IP form)
//
// The payload follows immediately after the header.
const replyHeaderSize = 32

// replyOverhead reserves room for protocol framing beyond the header and
// echoed payload, mirroring the worst-case reply structure requirement.
const replyOverhead = 8

// replyRecord is the decoded form of a completed probe's reply region.
type replyRecord struct {
	status    uint32
	rtt       time.Duration
	family    Family
	responder net.IP
	payload   []byte // view into the reply region, not a copy
}

// putReplyRecord encodes a completed exchange into the reply region.
// The region must be at least replyHeaderSize+len(payload) bytes; callers
// size it via Buffer.initForSend before submitting.
func putReplyRecord(region []byte, status uint32, rtt time.Duration, fam Family, responder net.IP, payload []byte) {
	if len(region) < replyHeaderSize {
		return
	}
	if max := len(region) - replyHeaderSize; len(payload) > max {
		payload = payload[:max]
	}
	binary.BigEndian.PutUint32(region[0:4], status)
	binary.BigEndian.PutUint64(region[4:12], uint64(rtt))
	region[12] = byte(fam)
	if responder != nil {
		region[13] = 1
		copy(region[16:32], responder.To16())
	} else {
		region[13] = 0
		for i := 16; i < 32; i++ {
			region[i] = 0
		}
	}
	binary.BigEndian.PutUint16(region[14:16], uint16(len(payload)))
	copy(region[replyHeaderSize:], payload)
}

// parseReplyRecord decodes the reply region. ok is false when the region is
// too short to hold a record or the recorded payload overruns it; callers
// treat that as no reply parsed.
func parseReplyRecord(region []byte) (rec replyRecord, ok bool) {
	if len(region) < replyHeaderSize {
		return replyRecord{}, false
	}
	rec.status = binary.BigEndian.Uint32(region[0:4])
	rec.rtt = time.Duration(binary.BigEndian.Uint64(region[4:12]))
	rec.family = Family(region[12])
	n := int(binary.BigEndian.Uint16(region[14:16]))
	if replyHeaderSize+n > len(region) {
		return replyRecord{}, false
	}
	if region[13] != 0 {
		ip := make(net.IP, 16)
		copy(ip, region[16:32])
		if rec.family == FamilyV4 {
			if v4 := ip.To4(); v4 != nil {
				ip = v4
			}
		}
		rec.responder = ip
	}
	rec.payload = region[replyHeaderSize : replyHeaderSize+n]
	return rec, true
}
