package probe

import "sync"

// stateKind tags the lifecycle variant of one outstanding async probe.
type stateKind uint8

const (
	// stateUnsubmitted: created at submission time, not yet completed or polled
	stateUnsubmitted stateKind = iota
	// stateAwaitingWake: polled at least once with no completion yet; wake is set
	stateAwaitingWake
	// stateReady: the transport signaled completion; reply record is valid
	stateReady
	// stateFailedSend: the submission itself failed before being accepted
	stateFailedSend
	// stateFailedSubmit: the transport returned a contract-violating
	// submission code; fatal when observed by a poll
	stateFailedSubmit
	// stateConsumed: placeholder while a variant is moved out, and the
	// terminal resting kind after a poll extracts the result
	stateConsumed
)

// completionState is the shared cell between a Future (which polls) and the
// worker goroutine (which submits and completes). All fields are guarded by
// mu; the lock is held only for the transition itself and never across a
// wake call, so a waker that immediately re-polls cannot deadlock.
//
// Expected transitions:
//
//	unsubmitted  -> awaitingWake   first poll before completion
//	unsubmitted  -> ready          completion before any poll
//	unsubmitted  -> failedSend     synchronous submission failure
//	unsubmitted  -> failedSubmit   contract-violating submission return
//	awaitingWake -> awaitingWake   re-poll displaces the previous waker
//	awaitingWake -> ready          completion wakes the registered waiter
//	awaitingWake -> failedSend     late synchronous failure wakes the waiter
//	ready/failed -> consumed       poll extracts the terminal result
type completionState struct {
	mu   sync.Mutex
	kind stateKind
	buf  *Buffer
	wake func()
	code uint32
}

func newCompletionState(buf *Buffer) *completionState {
	return &completionState{kind: stateUnsubmitted, buf: buf}
}

// finish moves the state to a terminal kind and returns the waker to run,
// if one was registered. A state already moved past unsubmitted/awaitingWake
// is left untouched: a double completion is a logic error, and corrupting
// the cell here would only hide it from the polling side, which surfaces it
// as a panic instead.
func (st *completionState) finish(kind stateKind, code uint32) {
	st.mu.Lock()
	var wake func()
	switch st.kind {
	case stateUnsubmitted:
		st.kind = kind
		st.code = code
	case stateAwaitingWake:
		st.kind = kind
		st.code = code
		wake = st.wake
		st.wake = nil
	}
	st.mu.Unlock()
	if wake != nil {
		wake()
	}
}

// complete records that the transport finished the exchange and the reply
// record is valid. Runs on the worker goroutine only.
func (st *completionState) complete() {
	st.finish(stateReady, codeSuccess)
}

// failSend records a synchronous submission failure. Runs on the worker
// goroutine only.
func (st *completionState) failSend(code uint32) {
	st.finish(stateFailedSend, code)
}

// failSubmit records a contract-violating submission return. The polling
// side turns this into a panic; the worker must keep running.
func (st *completionState) failSubmit(code uint32) {
	st.finish(stateFailedSubmit, code)
}
