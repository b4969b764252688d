package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	assert.Equal(t, InsufficientCredits, Get("INSUFFICIENT_CREDITS"))

	unknown := Get("SOMETHING_ELSE")
	assert.Equal(t, "SOMETHING_ELSE", unknown.Code)
	assert.Equal(t, "Unexpected error", unknown.Message)
}

func TestLookupCodesConsistent(t *testing.T) {
	for code, def := range Lookup {
		assert.Equal(t, code, def.Code)
		assert.NotEmpty(t, def.Message, code)
	}
}

func TestDefinitionWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create job: %w", InsufficientCredits)
	assert.True(t, stderrors.Is(wrapped, InsufficientCredits))

	var def Definition
	require.True(t, stderrors.As(wrapped, &def))
	assert.Equal(t, "INSUFFICIENT_CREDITS", def.Code)
}

func TestSkipMessageError(t *testing.T) {
	skip := &SkipMessageError{Reason: "message already processed"}
	assert.True(t, IsSkipMessageError(skip))
	assert.True(t, IsSkipMessageError(fmt.Errorf("consume: %w", skip)))
	assert.False(t, IsSkipMessageError(stderrors.New("boom")))
	assert.False(t, IsSkipMessageError(nil))
}
