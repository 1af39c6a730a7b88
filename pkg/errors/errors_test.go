package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	base := Validationf("offers.Validate", "unitPrice must be greater than 0")
	wrapped := fmt.Errorf("turn failed: %w", base)

	assert.Equal(t, KindValidation, KindOf(base))
	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.Equal(t, Kind(""), KindOf(stderrors.New("plain")))
}

func TestDependency_KeepsClassifiedErrors(t *testing.T) {
	conflict := Conflictf("gateway.OnStatusChange", "negotiation %s is already terminal", "n1")
	err := Dependency("negotiation.Session.Apply", conflict, "failed to persist status change")
	assert.True(t, IsConflict(err))

	cause := stderrors.New("connection refused")
	err = Dependency("negotiation.Session.Apply", cause, "failed to persist message")
	assert.True(t, IsDependency(err))
	assert.ErrorIs(t, err, cause)
}

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "validation", err: Validationf("op", "bad"), code: http.StatusBadRequest},
		{name: "conflict", err: Conflictf("op", "taken"), code: http.StatusConflict},
		{name: "dependency", err: Dependency("op", stderrors.New("down"), "store unavailable"), code: http.StatusServiceUnavailable},
		{name: "precondition", err: Preconditionf("op", "nothing completed"), code: http.StatusUnprocessableEntity},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			httpErr := ToHTTPError(test.err)
			require.True(t, httperror.IsHTTPError(httpErr))
			assert.Equal(t, test.code, httperror.GetStatusCode(httpErr))
		})
	}

	plain := stderrors.New("plain")
	assert.Equal(t, plain, ToHTTPError(plain))
}

func TestError_Message(t *testing.T) {
	err := Wrap(KindDependency, "repo.Create", stderrors.New("timeout"), "failed to create")
	assert.Equal(t, "repo.Create: failed to create: timeout", err.Error())
}
