package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := &Error{Type: ErrorTypeRateLimit, Message: "slow down", Code: 429}
	assert.Equal(t, "rate_limit error (code 429): slow down", err.Error())

	wrapped := Transport(context.DeadlineExceeded, "fetch page %d", 3)
	assert.Equal(t, "transport error: fetch page 3: context deadline exceeded", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, context.DeadlineExceeded))
}

func TestTypeOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", MalformedRecord("no id"))
	assert.Equal(t, ErrorTypeMalformedRecord, TypeOf(err))
	assert.True(t, IsType(err, ErrorTypeMalformedRecord))
	assert.False(t, IsType(err, ErrorTypeTransport))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
	assert.False(t, IsType(nil, ErrorTypeUnknown))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		expected bool
	}{
		{ErrorTypeTransport, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeServerError, true},
		{ErrorTypeAuth, false},
		{ErrorTypeNotFound, false},
		{ErrorTypeParsing, false},
		{ErrorTypeMalformedRecord, false},
		{ErrorTypeConfiguration, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.errType))
		})
	}
}
