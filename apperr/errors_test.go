package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestGetCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("join: %w", New(CodeCapacity, "room is full"))
	assert.Equal(t, CodeCapacity, GetCode(err))
	assert.True(t, IsCode(err, CodeCapacity))
	assert.Equal(t, CodeUnknown, GetCode(errors.New("plain")))
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
		msg  string
	}{
		{"quota", New(CodeQuotaExhausted, "no uses left"), codes.ResourceExhausted, "no uses left"},
		{"blocked", New(CodeBlockedNatural, "cannot act"), codes.FailedPrecondition, "cannot act"},
		{"internal", Wrap(errors.New("pq: broken pipe"), CodeInternal, "commit"), codes.Internal, "an unexpected error occurred, please retry"},
		{"foreign", errors.New("boom"), codes.Internal, "an unexpected error occurred, please retry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Status(tt.err)
			assert.Equal(t, tt.code, st.Code())
			assert.Equal(t, tt.msg, st.Message())
		})
	}
}

func TestWith_DoesNotMutate(t *testing.T) {
	base := New(CodeNotFound, "missing")
	withTarget := base.With("target", "p1")
	assert.Nil(t, base.Metadata)
	assert.Equal(t, "p1", withTarget.Metadata["target"])
	assert.True(t, CodeBlockedAttacked.IsBlocked())
	assert.False(t, CodeQuotaExhausted.IsBlocked())
}
