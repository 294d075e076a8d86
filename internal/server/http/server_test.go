package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/edisync/internal/config"
)

func TestHealth(t *testing.T) {
	e := NewEcho(config.Config{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestPanicRendersErrorEnvelope(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := NewEcho(config.Config{}, nil, zap.New(core))
	e.GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Kind string `json:"kind"`
		} `json:"error"`
		Meta map[string]any `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "internal", body.Error.Kind)
	assert.NotEmpty(t, body.Meta["requestId"])
	assert.Equal(t, 1, logs.FilterMessage("http handler panicked").Len())
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	e := NewEcho(config.Config{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"not_found"`)
}
