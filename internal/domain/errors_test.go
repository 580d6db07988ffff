package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := NewValidationError("id", "must be a positive integer", ErrInvalidID)
	assert.Equal(t, "id must be a positive integer", err.Error())
	assert.ErrorIs(t, fmt.Errorf("parse: %w", err), ErrInvalidID)

	var ve *ValidationError
	assert.True(t, errors.As(fmt.Errorf("parse: %w", err), &ve))
	assert.Equal(t, "id", ve.Field)

	assert.ErrorIs(t, NewValidationError("name", "is required", nil), ErrValidation)
}
