package response

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/edisync/pkg/errorbank"
)

// Builder helps construct consistent HTTP responses.
type Builder struct {
	ctx    echo.Context
	status int
	data   any
	err    error
	meta   map[string]any
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithMeta appends auxiliary metadata to the response.
func (b *Builder) WithMeta(key string, value any) *Builder {
	if key == "" {
		return b
	}
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = value
	return b
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	if id := b.ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		b.WithMeta("requestId", id)
	}
	if b.err != nil {
		return b.buildError()
	}
	return b.buildSuccess()
}

// Error renders err as an error envelope. Echo's own errors, such as
// unknown routes or oversized bodies, keep their status code.
func Error(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return New(c).WithStatus(httpErr.Code).WithError(fromHTTPError(httpErr)).Build()
	}
	return New(c).WithError(err).Build()
}

func fromHTTPError(httpErr *echo.HTTPError) *errorbank.AppError {
	message := http.StatusText(httpErr.Code)
	if m, ok := httpErr.Message.(string); ok && m != "" {
		message = m
	}
	switch httpErr.Code {
	case http.StatusBadRequest:
		return errorbank.BadRequest(message)
	case http.StatusRequestEntityTooLarge:
		return errorbank.PayloadTooLarge(message)
	case http.StatusUnauthorized:
		return errorbank.Unauthorized(message)
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return errorbank.NotFound(message)
	case http.StatusConflict:
		return errorbank.Conflict(message)
	case http.StatusUnprocessableEntity:
		return errorbank.Unprocessable(message)
	case http.StatusBadGateway:
		return errorbank.BadGateway(message)
	case http.StatusServiceUnavailable:
		return errorbank.Unavailable(message)
	default:
		return errorbank.Internal(message)
	}
}

func (b *Builder) buildSuccess() error {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	payload := struct {
		Success bool           `json:"success"`
		Data    any            `json:"data,omitempty"`
		Meta    map[string]any `json:"meta,omitempty"`
	}{
		Success: true,
		Data:    b.data,
		Meta:    b.meta,
	}
	return b.ctx.JSON(b.status, payload)
}

func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	status := b.status
	if status < 400 {
		status = appErr.StatusCode()
	}
	payload := struct {
		Success bool `json:"success"`
		Error   struct {
			Kind    string         `json:"kind"`
			Message string         `json:"message"`
			Details map[string]any `json:"details,omitempty"`
		} `json:"error"`
		Meta map[string]any `json:"meta,omitempty"`
	}{
		Success: false,
		Meta:    b.meta,
	}
	payload.Error.Kind = string(appErr.Kind())
	payload.Error.Message = appErr.Message()
	payload.Error.Details = appErr.Details()

	return b.ctx.JSON(status, payload)
}
