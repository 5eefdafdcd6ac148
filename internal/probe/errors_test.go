package probe

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestErrorFromStatus(t *testing.T) {
	tests := []struct {
		name string
		code uint32
		want error
	}{
		{"timeout", codeTimedOut, ErrTimeout},
		{"host unreachable", codeHostUnreachable, ErrHostUnreachable},
		{"net unreachable", codeNetUnreachable, ErrNetUnreachable},
		{"protocol unreachable", codeProtocolUnreachable, ErrProtocolUnreachable},
		{"ttl expired", codeTTLExpiredTransit, ErrTTLExpired},
		{"reassembly expired", codeTTLExpiredReassembly, ErrReassemblyExpired},
		{"needs fragmented", codePacketTooBig, ErrNeedsFragmented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorFromStatus(tt.code); got != tt.want {
				t.Errorf("errorFromStatus(%d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestErrorFromStatusUnmapped(t *testing.T) {
	err := errorFromStatus(codeBase + 5)
	var ce *CodeError
	if !errors.As(err, &ce) {
		t.Fatalf("errorFromStatus(unmapped) = %T, want *CodeError", err)
	}
	if ce.Code != codeBase+5 {
		t.Errorf("Code = %d, want %d", ce.Code, codeBase+5)
	}
}

func TestErrorFromCodeErrnoSpace(t *testing.T) {
	if got := errorFromCode(uint32(syscall.ENETUNREACH)); got != ErrNetUnreachable {
		t.Errorf("errorFromCode(ENETUNREACH) = %v, want ErrNetUnreachable", got)
	}
	if got := errorFromCode(uint32(syscall.EHOSTUNREACH)); got != ErrHostUnreachable {
		t.Errorf("errorFromCode(EHOSTUNREACH) = %v, want ErrHostUnreachable", got)
	}
	if got := errorFromCode(uint32(syscall.ETIMEDOUT)); got != ErrTimeout {
		t.Errorf("errorFromCode(ETIMEDOUT) = %v, want ErrTimeout", got)
	}
}

func TestErrnoCode(t *testing.T) {
	// A socket write error arrives wrapped several layers deep.
	err := &net.OpError{
		Op:  "write",
		Net: "ip4:icmp",
		Err: os.NewSyscallError("sendmsg", syscall.ENETUNREACH),
	}
	if got := errnoCode(err); got != uint32(syscall.ENETUNREACH) {
		t.Errorf("errnoCode() = %d, want ENETUNREACH", got)
	}
	if got := errnoCode(fmt.Errorf("no errno here")); got != 0 {
		t.Errorf("errnoCode(plain error) = %d, want 0", got)
	}
}

func TestIsHelpers(t *testing.T) {
	if !IsTimeout(ErrTimeout) {
		t.Error("IsTimeout(ErrTimeout) = false")
	}
	if IsTimeout(ErrHostUnreachable) {
		t.Error("IsTimeout(ErrHostUnreachable) = true")
	}
	for _, err := range []error{ErrHostUnreachable, ErrNetUnreachable, ErrProtocolUnreachable} {
		if !IsUnreachable(err) {
			t.Errorf("IsUnreachable(%v) = false", err)
		}
	}
	if IsUnreachable(ErrTimeout) {
		t.Error("IsUnreachable(ErrTimeout) = true")
	}
}
