package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchError_Error(t *testing.T) {
	bare := NewSearchError(ErrCodeExtraction, "malformed link", nil)
	assert.Equal(t, "EXTRACTION_ERROR: malformed link", bare.Error())

	wrapped := NewSearchError(ErrCodeNavigationTimeout, "navigation timed out", errors.New("deadline"))
	assert.Equal(t, "NAVIGATION_TIMEOUT: navigation timed out: deadline", wrapped.Error())
}

func TestCodeOf(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", cause, ErrCodeInternal},
		{"typed", NewSearchError(ErrCodeOverloaded, "busy", nil), ErrCodeOverloaded},
		{"wrapped", fmt.Errorf("handler: %w", NewSearchError(ErrCodeElementNotFound, "gone", cause)), ErrCodeElementNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewSearchError(ErrCodeSessionUnavailable, "lost", nil))
	assert.True(t, HasCode(err, ErrCodeSessionUnavailable))
	assert.False(t, HasCode(err, ErrCodeInternal))
	assert.False(t, HasCode(nil, ""))
}

func TestSearchError_UnwrapAndDetail(t *testing.T) {
	cause := errors.New("net::ERR_CONNECTION_RESET")
	err := NewSearchError(ErrCodeNavigation, "navigation failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, &ErrorDetail{Code: ErrCodeNavigation, Message: "navigation failed"}, err.ToDetail())
}
