package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindInvalidState, http.StatusConflict},
		{KindOwnershipMismatch, http.StatusForbidden},
		{KindForbidden, http.StatusForbidden},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindInternal, http.StatusInternalServerError},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.kind, "x").HTTPStatus())
		})
	}
}

func TestGetKindUnwrapsChain(t *testing.T) {
	base := InvalidState("session already completed").WithOp("visits.MarkVisited")
	wrapped := fmt.Errorf("handler: %w", base)

	assert.Equal(t, KindInvalidState, GetKind(wrapped))
	assert.True(t, Is(wrapped, KindInvalidState))
	assert.False(t, Is(nil, KindUnknown))
	assert.Equal(t, KindUnknown, GetKind(errors.New("plain")))
}

func TestErrorMessageIncludesOpAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindInternal, "load territory", cause).WithOp("assignments.Create")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "assignments.Create: load territory: connection reset", err.Error())
}
