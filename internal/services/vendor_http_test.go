package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableErrCanceledContext(t *testing.T) {
	if isRetryableErr(context.Canceled) {
		t.Fatalf("context.Canceled classified retryable")
	}
	wrapped := fmt.Errorf("ideogram generate: %w", context.Canceled)
	if isRetryableErr(wrapped) {
		t.Fatalf("wrapped context.Canceled classified retryable")
	}
}

func TestIsRetryableErrDeadlineExceeded(t *testing.T) {
	if !isRetryableErr(context.DeadlineExceeded) {
		t.Fatalf("per-attempt timeout should be retryable")
	}
}

func TestIsRetryableErrVendorStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusRequestTimeout, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
	}
	for _, tc := range cases {
		err := &vendorHTTPError{Vendor: "test", StatusCode: tc.code}
		if got := isRetryableErr(err); got != tc.want {
			t.Fatalf("status %d: want=%v got=%v", tc.code, tc.want, got)
		}
	}
}

func TestRetryAfterCapped(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"3600"}}}
	got := retryAfter(resp, time.Second)
	if got > 12*time.Second {
		t.Fatalf("Retry-After not capped: got=%v", got)
	}
}
