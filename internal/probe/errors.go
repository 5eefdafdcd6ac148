package probe

import (
	"errors"
	"fmt"
	"syscall"
)

// Probe outcome errors. These are ordinary, expected results of a probe and
// are returned as values, never panicked.
var (
	// ErrTimeout indicates the probe timed out waiting for a reply
	ErrTimeout = errors.New("request timed out")

	// ErrHostUnreachable indicates the destination host is unreachable
	ErrHostUnreachable = errors.New("destination host unreachable")

	// ErrNetUnreachable indicates the destination network is unreachable
	ErrNetUnreachable = errors.New("destination network unreachable")

	// ErrProtocolUnreachable indicates the destination protocol is unreachable
	ErrProtocolUnreachable = errors.New("destination protocol unreachable")

	// ErrTTLExpired indicates the TTL expired in transit
	ErrTTLExpired = errors.New("TTL expired in transit")

	// ErrReassemblyExpired indicates the reassembly timer expired
	ErrReassemblyExpired = errors.New("reassembly timed out waiting for fragments")

	// ErrNeedsFragmented indicates the packet needs fragmentation but DF is set
	ErrNeedsFragmented = errors.New("packet needs fragmented")
)

// Issuer construction errors.
var (
	// ErrNoV4 indicates the ICMPv4 listener could not be opened; the issuer
	// is still usable for IPv6
	ErrNoV4 = errors.New("ICMPv4 listener unavailable")

	// ErrNoV6 indicates the ICMPv6 listener could not be opened; the issuer
	// is still usable for IPv4
	ErrNoV6 = errors.New("ICMPv6 listener unavailable")

	// ErrNoListeners indicates neither address family could be opened
	ErrNoListeners = errors.New("no ICMP listeners available")
)

// ErrQueueStarted is returned by SetQueueCapacity once the shared worker
// exists; the capacity is fixed for the life of the process after that.
var ErrQueueStarted = errors.New("async queue already started")

// CodeError is the open "other" outcome: a raw status or OS error code that
// does not map onto the closed error set. Callers may still act on Code.
type CodeError struct {
	Code uint32
}

// Error renders the raw code. Codes in the reply-status range are named as
// such; anything below the range is treated as an OS error number.
func (e *CodeError) Error() string {
	if e.Code >= codeBase && e.Code <= codeMax {
		return fmt.Sprintf("reply status %d", e.Code)
	}
	return fmt.Sprintf("OS error %d: %s", e.Code, syscall.Errno(e.Code).Error())
}

// errorFromCode maps a raw code from either code space (reply status or OS
// error number) onto the closed error set, falling back to CodeError.
func errorFromCode(code uint32) error {
	if code >= codeBase && code <= codeMax {
		return errorFromStatus(code)
	}
	switch syscall.Errno(code) {
	case syscall.ETIMEDOUT:
		return ErrTimeout
	case syscall.EHOSTUNREACH, syscall.EHOSTDOWN:
		return ErrHostUnreachable
	case syscall.ENETUNREACH, syscall.ENETDOWN:
		return ErrNetUnreachable
	case syscall.EPROTONOSUPPORT:
		return ErrProtocolUnreachable
	case syscall.EMSGSIZE:
		return ErrNeedsFragmented
	}
	return &CodeError{Code: code}
}

// errorFromStatus maps a reply-status code onto the closed error set.
func errorFromStatus(code uint32) error {
	switch code {
	case codeTimedOut:
		return ErrTimeout
	case codeHostUnreachable:
		return ErrHostUnreachable
	case codeNetUnreachable:
		return ErrNetUnreachable
	case codeProtocolUnreachable:
		return ErrProtocolUnreachable
	case codeTTLExpiredTransit:
		return ErrTTLExpired
	case codeTTLExpiredReassembly:
		return ErrReassemblyExpired
	case codePacketTooBig:
		return ErrNeedsFragmented
	}
	return &CodeError{Code: code}
}

// IsTimeout returns true if the error indicates a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsUnreachable returns true if the error indicates any unreachable outcome.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrHostUnreachable) ||
		errors.Is(err, ErrNetUnreachable) ||
		errors.Is(err, ErrProtocolUnreachable)
}
