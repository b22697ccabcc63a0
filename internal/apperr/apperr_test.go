package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{Authentication("no credentials"), http.StatusUnauthorized},
		{Authorization("wrong role"), http.StatusForbidden},
		{Validation("bad input", nil), http.StatusUnprocessableEntity},
		{NotFound("gone", nil), http.StatusNotFound},
		{Conflict("clash", nil), http.StatusConflict},
		{AlreadyApproved("done", nil), http.StatusConflict},
		{ApprovalLimit("over limit", nil), http.StatusForbidden},
		{InvalidState("wrong state", nil), http.StatusBadRequest},
		{ExternalService("erp", errors.New("boom")), http.StatusInternalServerError},
		{Internal("oops"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.Status, tc.err.Code)
		assert.NotNil(t, tc.err.Details, "details map is always present")
	}
}

func TestFromUnknownErrorHidesInternals(t *testing.T) {
	appErr := From(errors.New("pq: connection refused to 10.0.0.5"))
	assert.Equal(t, CodeInternal, appErr.Code)
	assert.Equal(t, "internal server error", appErr.Message)
}

func TestFromUnwrapsWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("processing failed: %w", NotFound("invoice 42 not found", nil))
	appErr := From(wrapped)
	assert.Equal(t, CodeNotFound, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestIsCode(t *testing.T) {
	err := AlreadyApproved("already posted", nil)
	assert.True(t, IsCode(err, CodeAlreadyApproved))
	assert.False(t, IsCode(err, CodeConflict))
	assert.False(t, IsCode(errors.New("plain"), CodeConflict))
}

func TestExternalServiceKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := ExternalService("warehouse", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "warehouse", err.Details["service"])
	assert.NotContains(t, err.Message, "timeout", "remote detail stays out of the wire message")
}
