// Package probe issues ICMP echo probes and reports round-trip outcomes.
//
// Two issuers are provided. Pinger blocks the calling goroutine until the
// probe completes. AsyncPinger returns a Future immediately; every
// asynchronous probe in the process is serialized through a single worker
// goroutine that submits requests to the transport and executes completion
// callbacks, so futures can be polled from any goroutine without touching
// the transport themselves.
package probe

import (
	"net"
	"time"
)

// Family selects the IP address family of a probe.
type Family int

const (
	// FamilyV4 probes over ICMPv4
	FamilyV4 Family = iota
	// FamilyV6 probes over ICMPv6
	FamilyV6
)

// String returns the string representation of the family.
func (f Family) String() string {
	switch f {
	case FamilyV4:
		return "v4"
	case FamilyV6:
		return "v6"
	default:
		return "unknown"
	}
}

// familyOf picks the family for a destination address.
func familyOf(ip net.IP) Family {
	if ip.To4() != nil {
		return FamilyV4
	}
	return FamilyV6
}

// EchoRequest describes one echo exchange handed to the transport.
// Data and Reply must stay valid and untouched by the caller for the
// duration of the exchange; the transport writes the encoded reply record
// into Reply before signaling completion.
type EchoRequest struct {
	Src     net.IP // optional source address, nil to let the OS choose
	Dst     net.IP
	Data    []byte // request payload
	Reply   []byte // pre-sized reply region, see Buffer
	TTL     int
	DF      bool
	Timeout time.Duration
}

// Transport is the address-family-specific probe primitive. Echo is the
// blocking variant used by Pinger. EchoAsync begins an exchange and returns
// an immediate submission code:
//
//   - codePending: the request was accepted; the token will be delivered on
//     the Completions channel exactly once when the exchange finishes.
//   - any other non-success code: the request failed synchronously (the
//     code identifies why) and the token will never be delivered.
//   - codeSuccess: never returned by a conforming transport; an async
//     submission cannot succeed synchronously.
//
// Echo returns codeSuccess once a reply record has been written into
// req.Reply (the record itself carries the final status), or a non-success
// code if the request could not be sent at all.
type Transport interface {
	Echo(fam Family, req *EchoRequest) uint32
	EchoAsync(fam Family, req *EchoRequest, token any) uint32
	Completions() <-chan any
	Close() error
}
