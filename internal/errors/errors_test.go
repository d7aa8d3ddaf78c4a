package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	plain := New(ErrCodeValidation, "file size too large")
	assert.Equal(t, "file size too large", plain.Error())

	cause := stderrors.New("dial tcp: connection refused")
	wrapped := Wrap(cause, ErrCodeUnavailable, "rate limit check failed")
	assert.Equal(t, "rate limit check failed: dial tcp: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nope"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "nope %d", 1))
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		code ErrorCode
		pred func(error) bool
	}{
		{ErrCodeMalformedEvent, IsMalformedEvent},
		{ErrCodeInvalidPath, IsInvalidPath},
		{ErrCodeInvalidPathStructure, IsInvalidPathStructure},
		{ErrCodeValidation, IsValidation},
		{ErrCodeAnalysis, IsAnalysis},
		{ErrCodeDeliveryExhausted, IsDeliveryExhausted},
		{ErrCodeConflict, IsConflict},
		{ErrCodeUnavailable, IsUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "x")
			assert.True(t, tt.pred(err))
			assert.False(t, tt.pred(New(ErrCodeInternal, "y")))
			// Predicates must see through wrapping.
			assert.True(t, tt.pred(fmt.Errorf("outer: %w", err)))
		})
	}
}

func TestIsSkippable(t *testing.T) {
	assert.True(t, IsSkippable(New(ErrCodeMalformedEvent, "bad json")))
	assert.True(t, IsSkippable(New(ErrCodeInvalidPath, "outside root")))
	assert.True(t, IsSkippable(New(ErrCodeInvalidPathStructure, "too few segments")))
	assert.False(t, IsSkippable(New(ErrCodeValidation, "too big")))
	assert.False(t, IsSkippable(stderrors.New("plain")))
}

func TestGetCode(t *testing.T) {
	require.Equal(t, ErrCodeAnalysis, GetCode(New(ErrCodeAnalysis, "x")))
	require.Equal(t, ErrorCode(""), GetCode(stderrors.New("plain")))
}
