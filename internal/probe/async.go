package probe

import (
	"net"
	"time"
)

// AsyncPinger issues probes without blocking. All AsyncPingers in the
// process share one worker goroutine and one submission queue; creating
// more of them is cheap and does not spawn anything. If listener
// initialization failed at worker startup, every probe on the affected
// family resolves to an error rather than panicking.
//
// An AsyncPinger has no Close: the shared worker lives for the rest of the
// process.
type AsyncPinger struct {
	worker  *worker
	ttl     int
	df      bool
	timeout time.Duration
}

// NewAsyncPinger creates an AsyncPinger, starting the shared worker on
// first use.
func NewAsyncPinger() *AsyncPinger {
	return &AsyncPinger{
		worker:  acquireWorker(),
		ttl:     defaultTTL,
		df:      false,
		timeout: defaultTimeout,
	}
}

// newAsyncPingerWithWorker wires an issuer to a specific worker. Tests use
// this to run the bridge against a scripted transport.
func newAsyncPingerWithWorker(w *worker) *AsyncPinger {
	return &AsyncPinger{worker: w, ttl: defaultTTL, timeout: defaultTimeout}
}

// SetTTL sets the IP TTL for future requests.
func (p *AsyncPinger) SetTTL(ttl int) { p.ttl = ttl }

// TTL returns the current IP TTL value.
func (p *AsyncPinger) TTL() int { return p.ttl }

// SetDF sets the IP don't-fragment bit for future requests.
func (p *AsyncPinger) SetDF(df bool) { p.df = df }

// DF returns the current don't-fragment setting.
func (p *AsyncPinger) DF() bool { return p.df }

// SetTimeout sets the per-request timeout for future requests.
func (p *AsyncPinger) SetTimeout(d time.Duration) { p.timeout = d }

// Timeout returns the current per-request timeout.
func (p *AsyncPinger) Timeout() time.Duration { return p.timeout }

// Send4 sends an ICMPv4 echo request to dst. Ownership of buf transfers to
// the returned Future until it resolves.
func (p *AsyncPinger) Send4(dst net.IP, buf *Buffer) *Future {
	return p.begin(FamilyV4, nil, dst, buf)
}

// Send4From sends an ICMPv4 echo request from src to dst.
func (p *AsyncPinger) Send4From(src, dst net.IP, buf *Buffer) *Future {
	return p.begin(FamilyV4, src, dst, buf)
}

// Send6 sends an ICMPv6 echo request to dst.
func (p *AsyncPinger) Send6(dst net.IP, buf *Buffer) *Future {
	return p.begin(FamilyV6, nil, dst, buf)
}

// Send6From sends an ICMPv6 echo request from src to dst.
func (p *AsyncPinger) Send6From(src, dst net.IP, buf *Buffer) *Future {
	return p.begin(FamilyV6, src, dst, buf)
}

// Send sends an echo request to dst, picking the family from the address.
func (p *AsyncPinger) Send(dst net.IP, buf *Buffer) *Future {
	return p.begin(familyOf(dst), nil, dst, buf)
}

// SendFrom sends an echo request from pair.Src to pair.Dst. Both addresses
// must belong to the same family.
func (p *AsyncPinger) SendFrom(pair IPPair, buf *Buffer) *Future {
	return p.begin(familyOf(pair.Dst), pair.Src, pair.Dst, buf)
}

// begin builds the job, pushes it onto the shared queue (blocking while the
// queue is full) and hands back the future. The completion state is the
// only object shared with the worker; the job itself is consumed once.
func (p *AsyncPinger) begin(fam Family, src, dst net.IP, buf *Buffer) *Future {
	buf.initForSend()
	state := newCompletionState(buf)
	p.worker.enqueue(job{
		fam: fam,
		req: &EchoRequest{
			Src:     src,
			Dst:     dst,
			Data:    buf.RequestData,
			Reply:   buf.replyRegion(),
			TTL:     p.ttl,
			DF:      p.df,
			Timeout: p.timeout,
		},
		state: state,
	})
	return &Future{state: state}
}
