package probe

import (
	"net"
	"sync"
	"time"
)

// fakeTransport is a scripted Transport for exercising the worker bridge
// without opening sockets. Submissions are recorded in order; the test
// decides each submission's return code via the submit hook and later
// finishes accepted submissions with completeAt.
type fakeTransport struct {
	mu       sync.Mutex
	compc    chan any
	accepted []fakeSubmission

	// submit decides the code returned for the i-th EchoAsync call
	// (0-based). Nil means every submission is accepted as pending.
	submit func(i int, fam Family, req *EchoRequest) uint32

	// echo decides the code returned for blocking Echo calls. Nil means
	// success with a canned record.
	echo func(fam Family, req *EchoRequest) uint32

	calls  int
	closed bool
}

type fakeSubmission struct {
	fam   Family
	req   *EchoRequest
	token any
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{compc: make(chan any, 64)}
}

func (f *fakeTransport) Echo(fam Family, req *EchoRequest) uint32 {
	if f.echo != nil {
		return f.echo(fam, req)
	}
	putReplyRecord(req.Reply, codeSuccess, time.Millisecond, fam, net.IPv4(127, 0, 0, 1), req.Data)
	return codeSuccess
}

func (f *fakeTransport) EchoAsync(fam Family, req *EchoRequest, token any) uint32 {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.mu.Unlock()

	code := codePending
	if f.submit != nil {
		code = f.submit(i, fam, req)
	}
	if code == codePending {
		f.mu.Lock()
		f.accepted = append(f.accepted, fakeSubmission{fam: fam, req: req, token: token})
		f.mu.Unlock()
	}
	return code
}

func (f *fakeTransport) Completions() <-chan any {
	return f.compc
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// acceptedCount reports how many submissions returned pending so far.
func (f *fakeTransport) acceptedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.accepted)
}

// waitAccepted blocks until at least n submissions have been accepted.
func (f *fakeTransport) waitAccepted(n int) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.acceptedCount() >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// completeAt writes a reply record for the i-th accepted submission and
// posts its completion token.
func (f *fakeTransport) completeAt(i int, status uint32, rtt time.Duration, responder net.IP, payload []byte) {
	f.mu.Lock()
	s := f.accepted[i]
	f.mu.Unlock()
	putReplyRecord(s.req.Reply, status, rtt, s.fam, responder, payload)
	f.compc <- s.token
}
