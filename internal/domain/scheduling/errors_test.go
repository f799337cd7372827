package scheduling

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := newError(KindConflict, "create interval", "overlaps")
	if !errors.Is(err, ErrConflict) {
		t.Error("expected errors.Is to match the conflict sentinel")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("did not expect a not found match")
	}
	wrapped := fmt.Errorf("handler: %w", err)
	if KindOf(wrapped) != KindConflict {
		t.Errorf("expected conflict through wrapping, got %s", KindOf(wrapped))
	}
}

func TestError_Message(t *testing.T) {
	cause := errors.New("connection refused")
	err := &Error{Kind: KindStoreFailure, Op: "list intervals", Msg: "store unavailable", Err: cause}
	if got := err.Error(); got != "list intervals: store unavailable: connection refused" {
		t.Errorf("unexpected message %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("expected the cause to be reachable")
	}
	if got := (&Error{Kind: KindNotFound}).Error(); got != "not_found" {
		t.Errorf("expected kind name as message, got %q", got)
	}
}

func TestStoreFailure(t *testing.T) {
	if storeFailure("op", nil) != nil {
		t.Error("nil error should stay nil")
	}
	raw := errors.New("boom")
	if k := KindOf(storeFailure("op", raw)); k != KindStoreFailure {
		t.Errorf("expected store failure, got %s", k)
	}
	conflict := newError(KindConflict, "insert", "exclusion")
	if k := KindOf(storeFailure("op", conflict)); k != KindConflict {
		t.Errorf("classified errors keep their kind, got %s", k)
	}
}

func TestKind_IsInvalidInput(t *testing.T) {
	input := []Kind{KindInvalidDay, KindInvalidTimeFormat, KindInvertedOrZeroLengthInterval, KindOutsideBusinessHours, KindInvalidDuration}
	for _, k := range input {
		if !k.IsInvalidInput() {
			t.Errorf("%s should be invalid input", k)
		}
	}
	for _, k := range []Kind{KindConflict, KindNotFound, KindStoreFailure, KindUnknown} {
		if k.IsInvalidInput() {
			t.Errorf("%s should not be invalid input", k)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindInvalidDay, http.StatusBadRequest},
		{KindOutsideBusinessHours, http.StatusBadRequest},
		{KindInvalidDuration, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindNotFound, http.StatusNotFound},
		{KindStoreFailure, http.StatusServiceUnavailable},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := StatusFor(tt.kind); got != tt.want {
				t.Errorf("StatusFor(%s) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}
