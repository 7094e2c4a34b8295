package remote

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapCallError_Nil(t *testing.T) {
	if err := WrapCallError("op", nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestWrapCallError_StatusCodes(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{404, ErrNotFound},
		{429, ErrThrottled},
		{401, ErrAuth},
		{403, ErrAccessDenied},
		{500, ErrRemote},
		{422, ErrRemote},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("code_%d", tc.code), func(t *testing.T) {
			err := WrapCallError("op", &StatusError{Code: tc.code})
			if !errors.Is(err, tc.want) {
				t.Errorf("code %d: expected %v, got %v", tc.code, tc.want, err)
			}
		})
	}
}

func TestWrapCallError_MessagePatterns(t *testing.T) {
	cases := []struct {
		msg  string
		want error
	}{
		{"dial tcp 10.0.0.1:443: connection refused", ErrNetwork},
		{"lookup api.example.com: no such host", ErrNetwork},
		{"context deadline exceeded", ErrTimeout},
		{"request timed out", ErrTimeout},
		{"something else entirely", ErrRemote},
	}

	for _, tc := range cases {
		err := WrapCallError("op", errors.New(tc.msg))
		if !errors.Is(err, tc.want) {
			t.Errorf("%q: expected %v, got %v", tc.msg, tc.want, err)
		}
	}
}

func TestCallError_PreservesChain(t *testing.T) {
	underlying := &StatusError{Code: 429, Body: "slow down"}
	err := WrapCallError("payment_status", underlying)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatal("expected StatusError in chain")
	}
	if statusErr.Code != 429 {
		t.Errorf("expected code 429, got %d", statusErr.Code)
	}
	if !strings.Contains(err.Error(), "payment_status") {
		t.Errorf("expected operation in message, got %q", err.Error())
	}
}

func TestStatusError_Retriable(t *testing.T) {
	if (&StatusError{Code: 404}).Retriable() {
		t.Error("4xx must not be retriable")
	}
	if !(&StatusError{Code: 503}).Retriable() {
		t.Error("5xx must be retriable")
	}
}

func TestStatusError_Message(t *testing.T) {
	with := &StatusError{Code: 422, Body: "total_size must be positive"}
	if !strings.Contains(with.Error(), "total_size must be positive") {
		t.Errorf("expected body in message, got %q", with.Error())
	}
	without := &StatusError{Code: 500}
	if got := without.Error(); got != "unexpected status 500" {
		t.Errorf("unexpected message: %q", got)
	}
}
