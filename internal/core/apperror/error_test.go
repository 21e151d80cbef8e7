package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_WrappingPreservesCode(t *testing.T) {
	base := NewInsufficientBalance("p1", "w1", 10, 4)
	wrapped := fmt.Errorf("confirm move: %w", base)

	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("AsAppError failed on wrapped error")
	}
	if appErr.Code != CodeInsufficientBalance {
		t.Errorf("code = %s", appErr.Code)
	}
	if !IsCode(wrapped, CodeInsufficientBalance) {
		t.Error("IsCode failed on wrapped error")
	}
	if appErr.Details["requested"] != int64(10) || appErr.Details["available"] != int64(4) {
		t.Errorf("details = %v", appErr.Details)
	}
}

func TestAppError_WithCauseUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	appErr := NewInternal(cause)

	if !errors.Is(appErr, cause) {
		t.Error("errors.Is must reach the cause")
	}
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidation("bad"), http.StatusBadRequest},
		{NewInvalidState("m1", "done", "draft"), http.StatusUnprocessableEntity},
		{NewNotFound("order", "o1"), http.StatusNotFound},
		{NewConflict("busy"), http.StatusConflict},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := GetHTTPStatus(tt.err); got != tt.want {
			t.Errorf("GetHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWithDetail_DoesNotShareMaps(t *testing.T) {
	a := NewValidation("a").WithDetail("k", 1)
	b := NewValidation("b")

	if b.Details != nil {
		t.Error("fresh error must not inherit details")
	}
	if a.Details["k"] != 1 {
		t.Error("detail lost")
	}
}
