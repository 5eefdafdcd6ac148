package probe

import "sync"

// DefaultQueueCapacity is the submission queue size used when
// SetQueueCapacity was never called.
const DefaultQueueCapacity = 1024

// job is one submission, created by a calling goroutine and consumed
// exactly once by the worker.
type job struct {
	fam   Family
	req   *EchoRequest
	state *completionState
}

// worker drains the shared submission queue on a single goroutine. That
// goroutine is also the only place transport completions are executed, so
// every mutation of a completionState other than polling happens there.
type worker struct {
	jobs      chan job
	transport Transport

	// failCode is the per-family code submissions fail with when that
	// family's listener could not be opened at startup; codeSuccess means
	// the family is usable.
	failCode [2]uint32
}

var (
	workerMu      sync.Mutex
	queueCapacity = DefaultQueueCapacity
	sharedWorker  *worker
)

// SetQueueCapacity sets the capacity of the process-wide submission queue.
// It only has an effect before the first AsyncPinger is created; afterwards
// it returns ErrQueueStarted and the capacity is unchanged.
func SetQueueCapacity(n int) error {
	if n < 1 {
		n = 1
	}
	workerMu.Lock()
	defer workerMu.Unlock()
	if sharedWorker != nil {
		return ErrQueueStarted
	}
	queueCapacity = n
	return nil
}

// acquireWorker returns the process-wide worker, creating it on first use.
// The worker and its transport live until the process exits; there is no
// shutdown.
func acquireWorker() *worker {
	workerMu.Lock()
	defer workerMu.Unlock()
	if sharedWorker == nil {
		tr, err4, err6 := newICMPTransport(queueCapacity)
		sharedWorker = startWorker(queueCapacity, tr, err4, err6)
	}
	return sharedWorker
}

// startWorker builds a worker over the given transport and starts its loop.
// Listener failures do not prevent startup; submissions on a failed family
// are completed with the recorded code instead.
func startWorker(capacity int, tr Transport, err4, err6 error) *worker {
	w := &worker{
		jobs:      make(chan job, capacity),
		transport: tr,
	}
	w.failCode[FamilyV4] = initFailCode(err4)
	w.failCode[FamilyV6] = initFailCode(err6)
	go w.run()
	return w
}

// enqueue pushes a job onto the bounded queue, blocking the caller while
// the queue is full. This is the only backpressure in the async path.
func (w *worker) enqueue(j job) {
	w.jobs <- j
}

// run is the worker loop. Each wake-up handles one event and then drains
// every job already queued before waiting again, so a burst of submissions
// is issued back to back in FIFO order.
func (w *worker) run() {
	completions := w.transport.Completions()
	for {
		select {
		case j := <-w.jobs:
			w.submit(j)
			w.drain()
		case token := <-completions:
			w.deliver(token)
			w.drain()
		}
	}
}

// drain submits all currently queued jobs without blocking.
func (w *worker) drain() {
	for {
		select {
		case j := <-w.jobs:
			w.submit(j)
		default:
			return
		}
	}
}

// submit issues one job on the transport and classifies the immediate
// return. The transport holds the state token until completion; on a
// synchronous failure no completion will come, so the state is finished
// here.
func (w *worker) submit(j job) {
	if code := w.failCode[j.fam]; code != codeSuccess {
		j.state.failSend(code)
		return
	}
	switch code := w.transport.EchoAsync(j.fam, j.req, j.state); {
	case code == codePending:
		// Accepted; the completion callback will finish the state.
	case code != codeSuccess:
		j.state.failSend(code)
	default:
		// A synchronous "success" from an async submission violates the
		// transport contract. Record it and let the polling side abort;
		// unwinding here would take the whole worker down with it.
		j.state.failSubmit(code)
	}
}

// deliver executes one completion callback on the worker goroutine.
func (w *worker) deliver(token any) {
	st, ok := token.(*completionState)
	if !ok {
		panic("probe: transport delivered an unknown completion token")
	}
	st.complete()
}

// initFailCode maps a listener construction error to the code submissions
// on that family fail with.
func initFailCode(err error) uint32 {
	if err == nil {
		return codeSuccess
	}
	if code := errnoCode(err); code != 0 {
		return code
	}
	return codeNetUnreachable
}
