package probe

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"
)

func TestFuturePollReadyResult(t *testing.T) {
	payload := []byte("hello probe")
	buf := NewBufferWithData(payload)
	buf.initForSend()
	st := newCompletionState(buf)
	f := &Future{state: st}

	responder := net.IPv4(192, 0, 2, 7)
	putReplyRecord(buf.replyRegion(), codeSuccess, 3*time.Millisecond, FamilyV4, responder, payload)
	st.complete()

	res, ready := f.Poll(nil)
	if !ready {
		t.Fatal("Poll() not ready after completion")
	}
	if res.Err != nil {
		t.Fatalf("Err = %v, want nil", res.Err)
	}
	if res.RTT != 3*time.Millisecond {
		t.Errorf("RTT = %v, want 3ms", res.RTT)
	}
	if res.Buffer != buf {
		t.Error("Buffer not handed back to caller")
	}
	if !bytes.Equal(res.Buffer.ReplyData(), payload) {
		t.Errorf("ReplyData() = %q, want %q", res.Buffer.ReplyData(), payload)
	}
	if !res.Buffer.RespondingAddr().Equal(responder) {
		t.Errorf("RespondingAddr() = %v, want %v", res.Buffer.RespondingAddr(), responder)
	}
}

func TestFuturePollFailedSend(t *testing.T) {
	buf := NewBuffer()
	buf.initForSend()
	st := newCompletionState(buf)
	st.failSend(codeHostUnreachable)

	res, ready := (&Future{state: st}).Poll(nil)
	if !ready {
		t.Fatal("Poll() not ready after failed send")
	}
	if res.Err != ErrHostUnreachable {
		t.Errorf("Err = %v, want ErrHostUnreachable", res.Err)
	}
	if res.Buffer != buf {
		t.Error("Buffer not handed back after failure")
	}
	if res.Buffer.ReplyData() != nil {
		t.Error("ReplyData() after failure should be nil")
	}
}

func TestFuturePollUnparseableRecord(t *testing.T) {
	// A completion whose reply region holds no parseable record must come
	// back as a failure, not as the success sentinel dressed up as an error.
	st := newCompletionState(&Buffer{})
	st.complete()

	res, ready := (&Future{state: st}).Poll(nil)
	if !ready {
		t.Fatal("Poll() not ready after completion")
	}
	var ce *CodeError
	if !errors.As(res.Err, &ce) || ce.Code != codeGeneralFailure {
		t.Errorf("Err = %v, want CodeError with the general-failure code", res.Err)
	}
}

func TestFuturePollAfterConsumedPanics(t *testing.T) {
	buf := NewBuffer()
	buf.initForSend()
	st := newCompletionState(buf)
	putReplyRecord(buf.replyRegion(), codeSuccess, 0, FamilyV4, nil, nil)
	st.complete()

	f := &Future{state: st}
	if _, ready := f.Poll(nil); !ready {
		t.Fatal("first Poll() not ready")
	}

	defer func() {
		if recover() == nil {
			t.Error("second Poll() after extraction should panic")
		}
	}()
	f.Poll(nil)
}

func TestFuturePollContractViolationPanics(t *testing.T) {
	st := newCompletionState(NewBuffer())
	st.failSubmit(codeSuccess)

	defer func() {
		if recover() == nil {
			t.Error("Poll() on a contract-violating submission should panic")
		}
	}()
	(&Future{state: st}).Poll(nil)
}

func TestFutureAwait(t *testing.T) {
	buf := NewBuffer()
	buf.initForSend()
	st := newCompletionState(buf)
	f := &Future{state: st}

	go func() {
		time.Sleep(10 * time.Millisecond)
		putReplyRecord(buf.replyRegion(), codeSuccess, 5*time.Millisecond, FamilyV6, net.ParseIP("::1"), nil)
		st.complete()
	}()

	res := f.Await()
	if res.Err != nil {
		t.Fatalf("Await() Err = %v, want nil", res.Err)
	}
	if res.RTT != 5*time.Millisecond {
		t.Errorf("Await() RTT = %v, want 5ms", res.RTT)
	}
}
