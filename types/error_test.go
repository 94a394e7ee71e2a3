package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name      string
		err       *Error
		kind      ErrorKind
		retryable bool
	}{
		{"timeout", NewTimeoutError("refine_query", cause), KindTimeout, true},
		{"circuit open", NewCircuitOpenError("data_query", nil), KindCircuitOpen, false},
		{"execution", NewExecutionError("classify", cause), KindExecution, true},
		{"recoverable", NewRecoverableError("classify", cause), KindExecution, true},
		{"protocol", NewProtocolError("router", "illegal target"), KindProtocol, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.True(t, IsKind(tt.err, tt.kind))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestError_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewExecutionError("data_query", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), string(KindExecution))
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Empty(t, KindOf(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
