package crawlerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindRoundTrip(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := UnreachableError("10.0.0.1:22", cause)

	if err.ErrorKind() != KindUnreachable {
		t.Errorf("ErrorKind() = %v, want %v", err.ErrorKind(), KindUnreachable)
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should find wrapped cause")
	}

	kind, ok := As(err)
	if !ok || kind != KindUnreachable {
		t.Errorf("As() = (%v, %v), want (%v, true)", kind, ok, KindUnreachable)
	}
}

func TestIsAuthFailure(t *testing.T) {
	auth := AuthFailureError("10.0.0.1:22", errors.New("ssh: handshake failed"))
	if !IsAuthFailure(auth) {
		t.Error("expected IsAuthFailure to be true for AuthFailureError")
	}

	other := TransportError("10.0.0.1:22", "read timeout", nil)
	if IsAuthFailure(other) {
		t.Error("expected IsAuthFailure to be false for TransportError")
	}
	if IsAuthFailure(errors.New("plain error")) {
		t.Error("expected IsAuthFailure to be false for an unrelated error")
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *KindError
		want string
	}{
		{"no reason", UnreachableError("10.0.0.1:22", nil), "unreachable: 10.0.0.1:22"},
		{"with reason", NeighborParseFailedError("10.0.0.1:22", "show cdp neighbors detail"),
			"neighbor_parse_failed: 10.0.0.1:22: show cdp neighbors detail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAsNonKindError(t *testing.T) {
	_, ok := As(errors.New("plain"))
	if ok {
		t.Error("expected As() to return false for a non-KindError")
	}
}

func TestAsAndIsAuthFailureFindWrappedKindError(t *testing.T) {
	auth := AuthFailureError("10.0.0.1:22", errors.New("ssh: handshake failed"))
	wrapped := fmt.Errorf("dial: %w", auth)

	kind, ok := As(wrapped)
	if !ok || kind != KindAuthFailure {
		t.Errorf("As(wrapped) = (%v, %v), want (%v, true)", kind, ok, KindAuthFailure)
	}
	if !IsAuthFailure(wrapped) {
		t.Error("expected IsAuthFailure to see through a wrapped KindError")
	}
}
