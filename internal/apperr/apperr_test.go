package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindCodesAndStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind   Kind
		code   string
		status int
	}{
		{KindNotFound, "not_found", http.StatusNotFound},
		{KindInvalidState, "invalid_state", http.StatusConflict},
		{KindInvalidArgument, "invalid_argument", http.StatusBadRequest},
		{KindUnauthorized, "unauthorized", http.StatusUnauthorized},
		{KindForbidden, "forbidden", http.StatusForbidden},
		{KindConflict, "conflict", http.StatusConflict},
		{KindInternal, "internal", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.kind.Code())
		assert.Equal(t, tt.status, tt.kind.HTTPStatus())
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	t.Parallel()

	base := NotFound("trade not found")
	wrapped := fmt.Errorf("close: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(nil, KindNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestPublicMessageHidesInternals(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	assert.Equal(t, "internal error", PublicMessage(cause))
	assert.Equal(t, "internal error", PublicMessage(Wrap(KindInternal, "db", cause)))

	err := Wrap(KindConflict, "username already registered", cause)
	assert.Equal(t, "username already registered", PublicMessage(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "username already registered: connection reset", err.Error())
}
