package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"restaurant-ordering-api/apperr"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(apperr.NotFound("Item not found.")))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("disk on fire")))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(nil))
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("confirm cart: %w", apperr.Validation("Cart is empty."))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.False(t, apperr.Is(nil, apperr.KindValidation))
}

func TestValidationFields(t *testing.T) {
	err := apperr.ValidationFields(map[string]string{"password": "Passwords do not match."})
	assert.Equal(t, apperr.KindValidation, err.Kind)
	assert.Equal(t, "Passwords do not match.", err.Fields["password"])
	assert.Equal(t, "validation: Validation failed", err.Error())
}

func TestStatus(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:      http.StatusBadRequest,
		apperr.KindUnauthenticated: http.StatusUnauthorized,
		apperr.KindForbidden:       http.StatusForbidden,
		apperr.KindNotFound:        http.StatusNotFound,
		apperr.KindConflict:        http.StatusConflict,
		apperr.KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, apperr.Status(kind), kind)
	}
}
