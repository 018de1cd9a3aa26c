package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusAndCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", NotFound(errors.New("missing")), http.StatusNotFound, CodeNotFound},
		{"invalid request", InvalidRequest(errors.New("bad")), http.StatusBadRequest, CodeInvalidRequest},
		{"conflict", Conflict(errors.New("race")), http.StatusConflict, CodeConflict},
		{"unauthorized", Unauthorized(errors.New("nope")), http.StatusUnauthorized, CodeUnauthorized},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
		{"wrapped api error", fmt.Errorf("outer: %w", NotFound(errors.New("inner"))), http.StatusNotFound, CodeNotFound},
		{"zero value", &Error{}, http.StatusInternalServerError, CodeInternal},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			status, code := StatusAndCode(tc.err)
			if status != tc.wantStatus || code != tc.wantCode {
				t.Fatalf("unexpected mapping: got=%d/%q want=%d/%q", status, code, tc.wantStatus, tc.wantCode)
			}
		})
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("record missing")
	err := NotFound(fmt.Errorf("lookup: %w", cause))
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
	if err.Error() != "lookup: record missing" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
