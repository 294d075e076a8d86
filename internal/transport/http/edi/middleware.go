package edi

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/edisync/internal/presentation/http/response"
	"github.com/Additional-Code/edisync/pkg/errorbank"
)

const (
	// APIKeyHeader carries the scheduler API key.
	APIKeyHeader = "X-API-Key"
	// SignatureHeader carries the hex HMAC-SHA256 of a webhook body.
	SignatureHeader = "X-EDI-Signature"
)

var (
	errSecretNotConfigured = errors.New("webhook secret is not configured")
	errSignatureMismatch   = errors.New("signature mismatch")
)

// RequireAPIKey rejects requests whose X-API-Key does not match key. An
// empty key rejects everything.
func RequireAPIKey(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get(APIKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return response.New(c).WithError(errorbank.Unauthorized("invalid api key")).Build()
			}
			return next(c)
		}
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature. A "sha256=" prefix is accepted.
func VerifySignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return errSecretNotConfigured
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil {
		return errSignatureMismatch
	}
	want, _ := hex.DecodeString(Sign(secret, body))
	if !hmac.Equal(got, want) {
		return errSignatureMismatch
	}
	return nil
}
