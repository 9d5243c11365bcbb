package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("write failure wraps its cause", func(t *testing.T) {
		cause := stderrors.New("connection reset")
		err := WriteFailedError("r1", []string{"text"}, cause)

		assert.ErrorIs(t, err, cause)
		assert.Equal(t, ErrCodeWriteFailed, err.Code)
		assert.Equal(t, "r1", err.Details["region"])
		assert.Equal(t, http.StatusBadGateway, err.GetHTTPCode())
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("codes survive fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("flush: %w", NotFound("region", "r9"))

		assert.True(t, Is(err, ErrCodeNotFound))
		assert.False(t, Is(err, ErrCodeWriteFailed))
		assert.Equal(t, ErrCodeNotFound, GetCode(err))
		assert.Equal(t, http.StatusNotFound, GetHTTPCode(err))
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		err := stderrors.New("boom")

		assert.Equal(t, ErrCodeInternal, GetCode(err))
		assert.Equal(t, http.StatusInternalServerError, GetHTTPCode(err))
	})

	t.Run("validation", func(t *testing.T) {
		err := ValidationError("end", "must be after start")

		assert.Equal(t, http.StatusBadRequest, err.GetHTTPCode())
		assert.Equal(t, "end", err.Details["field"])
	})
}

func TestCodeForStatus(t *testing.T) {
	tests := map[int]ErrorCode{
		http.StatusBadRequest:          ErrCodeInvalidInput,
		http.StatusUnauthorized:        ErrCodeUnauthorized,
		http.StatusForbidden:           ErrCodeForbidden,
		http.StatusNotFound:            ErrCodeNotFound,
		http.StatusConflict:            ErrCodeConflict,
		http.StatusGatewayTimeout:      ErrCodeAPITimeout,
		http.StatusTooManyRequests:     ErrCodeBusy,
		http.StatusServiceUnavailable:  ErrCodeBusy,
		http.StatusInternalServerError: ErrCodeExternalService,
	}
	for status, want := range tests {
		assert.Equal(t, want, CodeForStatus(status), "status %d", status)
	}

	assert.Equal(t, http.StatusForbidden, New(ErrCodeForbidden, "no").GetHTTPCode())
}
