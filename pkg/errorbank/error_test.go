package errorbank

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestKindMappings(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
		code   codes.Code
	}{
		{BadRequest("bad"), http.StatusBadRequest, codes.InvalidArgument},
		{Unauthorized("who"), http.StatusUnauthorized, codes.Unauthenticated},
		{NotFound("gone"), http.StatusNotFound, codes.NotFound},
		{Conflict("busy"), http.StatusConflict, codes.AlreadyExists},
		{Unprocessable("shape"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{BadGateway("upstream"), http.StatusBadGateway, codes.Unknown},
		{Unavailable("retry"), http.StatusServiceUnavailable, codes.Unavailable},
		{PayloadTooLarge("big"), http.StatusRequestEntityTooLarge, codes.ResourceExhausted},
		{Internal("boom"), http.StatusInternalServerError, codes.Internal},
	}
	for _, tc := range cases {
		t.Run(string(tc.err.Kind()), func(t *testing.T) {
			assert.Equal(t, tc.status, tc.err.StatusCode())
			assert.Equal(t, tc.code, tc.err.GRPCCode())
		})
	}
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("socket closed")
	appErr := From(cause)

	assert.Equal(t, KindInternal, appErr.Kind())
	assert.ErrorIs(t, appErr, cause)
	assert.Nil(t, From(nil))
}

func TestDetailsAndCause(t *testing.T) {
	cause := errors.New("timeout")
	err := BadGateway("provider failed",
		WithCause(cause),
		WithDetail("document_type", "850"),
		WithDetails(map[string]any{"status": 503}),
	)

	assert.Equal(t, "provider failed: timeout", err.Error())
	assert.Equal(t, map[string]any{"document_type": "850", "status": 503}, err.Details())

	wrapped := From(errors.Join(err))
	assert.Equal(t, KindBadGateway, wrapped.Kind())
}
