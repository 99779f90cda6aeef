package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Email  string `validate:"required,email"`
	Rating int    `validate:"gte=1,lte=5"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(&sample{Email: "a@example.com", Rating: 3}))

	err := ValidateStruct(&sample{Email: "", Rating: 9})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "email is required")
	assert.Contains(t, err.Error(), "rating must be 5 or less")
}
