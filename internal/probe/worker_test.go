package probe

import (
	"bytes"
	"errors"
	"net"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestWorkerDeliversCompletion(t *testing.T) {
	ft := newFakeTransport()
	w := startWorker(4, ft, nil, nil)
	p := newAsyncPingerWithWorker(w)

	payload := []byte{1, 2, 3, 4}
	fut := p.Send4(net.IPv4(192, 0, 2, 1), NewBufferWithData(payload))

	if !ft.waitAccepted(1) {
		t.Fatal("submission never reached the transport")
	}
	ft.completeAt(0, codeSuccess, 7*time.Millisecond, net.IPv4(192, 0, 2, 1), payload)

	res := fut.Await()
	if res.Err != nil {
		t.Fatalf("Await() Err = %v, want nil", res.Err)
	}
	if res.RTT != 7*time.Millisecond {
		t.Errorf("RTT = %v, want 7ms", res.RTT)
	}
	if !bytes.Equal(res.Buffer.ReplyData(), payload) {
		t.Errorf("ReplyData() = %v, want %v", res.Buffer.ReplyData(), payload)
	}
}

func TestWorkerErrorStatusCompletion(t *testing.T) {
	ft := newFakeTransport()
	w := startWorker(4, ft, nil, nil)
	p := newAsyncPingerWithWorker(w)

	fut := p.Send4(net.IPv4(192, 0, 2, 2), NewBuffer())
	if !ft.waitAccepted(1) {
		t.Fatal("submission never reached the transport")
	}
	ft.completeAt(0, codeTTLExpiredTransit, 0, nil, nil)

	res := fut.Await()
	if res.Err != ErrTTLExpired {
		t.Errorf("Err = %v, want ErrTTLExpired", res.Err)
	}
	if res.Buffer == nil {
		t.Error("Buffer not returned on error completion")
	}
}

func TestWorkerSynchronousSendFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.submit = func(i int, fam Family, req *EchoRequest) uint32 {
		return codeNetUnreachable
	}
	w := startWorker(4, ft, nil, nil)
	p := newAsyncPingerWithWorker(w)

	res := p.Send4(net.IPv4(192, 0, 2, 3), NewBuffer()).Await()
	if res.Err != ErrNetUnreachable {
		t.Errorf("Err = %v, want ErrNetUnreachable", res.Err)
	}
}

func TestWorkerFailedFamilyListener(t *testing.T) {
	ft := newFakeTransport()
	err6 := os.NewSyscallError("socket", syscall.EPERM)
	w := startWorker(4, ft, nil, err6)
	p := newAsyncPingerWithWorker(w)

	res := p.Send6(net.ParseIP("2001:db8::1"), NewBuffer()).Await()
	var ce *CodeError
	if !errors.As(res.Err, &ce) || ce.Code != uint32(syscall.EPERM) {
		t.Errorf("Err = %v, want CodeError{EPERM}", res.Err)
	}
	if ft.acceptedCount() != 0 {
		t.Error("submission on a failed family must not reach the transport")
	}

	// The other family keeps working.
	fut := p.Send4(net.IPv4(192, 0, 2, 4), NewBuffer())
	if !ft.waitAccepted(1) {
		t.Fatal("v4 submission never reached the transport")
	}
	ft.completeAt(0, codeSuccess, time.Millisecond, net.IPv4(192, 0, 2, 4), nil)
	if res := fut.Await(); res.Err != nil {
		t.Errorf("v4 probe Err = %v, want nil", res.Err)
	}
}

func TestWorkerSubmitsInOrder(t *testing.T) {
	ft := newFakeTransport()
	w := startWorker(8, ft, nil, nil)
	p := newAsyncPingerWithWorker(w)

	var futs []*Future
	for i := 0; i < 5; i++ {
		futs = append(futs, p.Send4(net.IPv4(192, 0, 2, byte(10+i)), NewBufferWithData([]byte{byte(i)})))
	}
	if !ft.waitAccepted(5) {
		t.Fatal("not all submissions reached the transport")
	}

	ft.mu.Lock()
	for i, s := range ft.accepted {
		if s.req.Data[0] != byte(i) {
			t.Errorf("submission %d carries payload %d, want %d", i, s.req.Data[0], i)
		}
	}
	ft.mu.Unlock()

	// Complete out of order; each future still resolves to its own probe.
	for i := 4; i >= 0; i-- {
		ft.completeAt(i, codeSuccess, time.Duration(i+1)*time.Millisecond, nil, []byte{byte(i)})
	}
	for i, fut := range futs {
		res := fut.Await()
		if res.Err != nil {
			t.Fatalf("future %d Err = %v", i, res.Err)
		}
		if res.Buffer.ReplyData()[0] != byte(i) {
			t.Errorf("future %d got payload %d", i, res.Buffer.ReplyData()[0])
		}
	}
}

func TestWorkerQueueBackpressure(t *testing.T) {
	ft := newFakeTransport()
	release := make(chan struct{})
	ft.submit = func(i int, fam Family, req *EchoRequest) uint32 {
		if i == 0 {
			<-release
		}
		return codePending
	}
	w := startWorker(1, ft, nil, nil)
	p := newAsyncPingerWithWorker(w)

	// First job occupies the worker inside submit; second fills the queue.
	p.Send4(net.IPv4(192, 0, 2, 20), NewBuffer())
	time.Sleep(10 * time.Millisecond)
	p.Send4(net.IPv4(192, 0, 2, 21), NewBuffer())

	// Third submission must block until the worker is released.
	entered := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(entered)
		p.Send4(net.IPv4(192, 0, 2, 22), NewBuffer())
		close(done)
	}()
	<-entered

	select {
	case <-done:
		t.Fatal("send on a full queue returned without blocking")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("send never unblocked after the queue drained")
	}
	if !ft.waitAccepted(3) {
		t.Fatal("not all submissions reached the transport")
	}
}

func TestWorkerContractViolationPanicsOnPoll(t *testing.T) {
	ft := newFakeTransport()
	ft.submit = func(i int, fam Family, req *EchoRequest) uint32 {
		return codeSuccess
	}
	w := startWorker(4, ft, nil, nil)
	p := newAsyncPingerWithWorker(w)

	fut := p.Send4(net.IPv4(192, 0, 2, 30), NewBuffer())

	defer func() {
		if recover() == nil {
			t.Error("Await() on a contract-violating submission should panic")
		}
	}()
	fut.Await()
}

func TestSetQueueCapacity(t *testing.T) {
	workerMu.Lock()
	started := sharedWorker != nil
	workerMu.Unlock()

	err := SetQueueCapacity(DefaultQueueCapacity)
	if started {
		if err != ErrQueueStarted {
			t.Errorf("SetQueueCapacity after start = %v, want ErrQueueStarted", err)
		}
		return
	}
	if err != nil {
		t.Errorf("SetQueueCapacity before start = %v, want nil", err)
	}
}
