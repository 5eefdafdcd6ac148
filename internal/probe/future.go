package probe

import (
	"fmt"
	"time"
)

// AsyncResult is the outcome of an asynchronous probe. Buffer is the buffer
// originally passed to the send call, handed back to the caller; on success
// its reply view carries the echoed payload.
type AsyncResult struct {
	// RTT is the round-trip time; meaningful only when Err is nil.
	RTT time.Duration

	// Err is nil on success, otherwise one of the probe outcome errors or
	// a CodeError.
	Err error

	// Buffer is the request buffer, returned to caller ownership.
	Buffer *Buffer
}

// Future is the pollable handle for an in-flight asynchronous probe.
//
// A Future does not cancel its probe when abandoned: the transport still
// completes the exchange and the shared state is dropped unobserved, which
// is safe because the state is referenced independently by both sides.
type Future struct {
	state *completionState
}

// Poll reports whether the probe has completed. If not, wake is registered
// to be called exactly once when it does (displacing any waker registered
// by an earlier poll) and Poll returns ready=false; the caller must not
// poll again until woken. If the probe has completed, Poll extracts and
// returns the terminal result.
//
// Poll must not be called again after it has returned ready=true: the
// result, including buffer ownership, is moved out on the first ready poll,
// and a later poll panics.
//
// Poll panics if the transport violated its submission contract; by then
// the buffer may be inconsistent and no usable value can be returned.
func (f *Future) Poll(wake func()) (res AsyncResult, ready bool) {
	st := f.state
	st.mu.Lock()
	kind := st.kind
	st.kind = stateConsumed
	switch kind {
	case stateUnsubmitted, stateAwaitingWake:
		st.kind = stateAwaitingWake
		st.wake = wake
		st.mu.Unlock()
		return AsyncResult{}, false
	case stateReady:
		buf := st.buf
		st.buf = nil
		st.mu.Unlock()
		rtt, err := buf.extract(codeGeneralFailure)
		return AsyncResult{RTT: rtt, Err: err, Buffer: buf}, true
	case stateFailedSend:
		buf, code := st.buf, st.code
		st.buf = nil
		st.mu.Unlock()
		return AsyncResult{Err: errorFromCode(code), Buffer: buf}, true
	case stateFailedSubmit:
		code := st.code
		st.mu.Unlock()
		panic(fmt.Sprintf("probe: async submission returned unexpected code %d", code))
	default:
		st.mu.Unlock()
		panic("probe: future polled after its result was consumed")
	}
}

// Await blocks until the probe completes and returns its result. It is the
// blocking convenience over Poll.
func (f *Future) Await() AsyncResult {
	for {
		woken := make(chan struct{}, 1)
		res, ready := f.Poll(func() {
			woken <- struct{}{}
		})
		if ready {
			return res
		}
		<-woken
	}
}
