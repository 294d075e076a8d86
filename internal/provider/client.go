package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/config"
	"github.com/Additional-Code/edisync/internal/edi"
)

var clientTracer = otel.Tracer("github.com/Additional-Code/edisync/provider")

const (
	headerCompanyID = "X-Company-Id"
	userAgent       = "edisync/1.0"
	maxBodyBytes    = 4 << 20
)

// Module provides the provider client to Fx.
var Module = fx.Provide(New)

// Submission is the provider's answer to an outbound document.
type Submission struct {
	ReferenceID string `json:"referenceId"`
	Status      string `json:"status"`
}

// Client is the authenticated transport to the EDI provider REST API.
type Client struct {
	baseURL   string
	apiKey    string
	companyID string
	http      *http.Client
	logger    *zap.Logger
}

// New builds a Client from the EDI configuration.
func New(cfg config.Config, logger *zap.Logger) *Client {
	if cfg.EDI.BaseURL == "" && logger != nil {
		logger.Warn("EDI_API_URL is empty; provider calls will fail")
	}
	return NewWithHTTPClient(cfg.EDI, &http.Client{Timeout: cfg.EDI.RequestTimeout}, logger)
}

// NewWithHTTPClient builds a Client around a caller-supplied http.Client.
func NewWithHTTPClient(cfg config.EDI, httpClient *http.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		companyID: cfg.CompanyID,
		http:      httpClient,
		logger:    logger,
	}
}

// PostOutboundDocument submits payload as a document of the given type.
func (c *Client) PostOutboundDocument(ctx context.Context, code edi.DocumentType, partnerID string, payload any) (Submission, error) {
	ctx, span := clientTracer.Start(ctx, "Provider.PostOutboundDocument", trace.WithAttributes(
		attribute.String("edi.document_type", code.String()),
		attribute.String("edi.partner_id", partnerID),
	))
	defer span.End()

	body := struct {
		PartnerID string `json:"partnerId"`
		Document  any    `json:"document"`
	}{PartnerID: partnerID, Document: payload}

	var out Submission
	if err := c.do(ctx, http.MethodPost, "/documents/outbound/"+url.PathEscape(code.String()), body, &out); err != nil {
		recordError(span, err)
		return Submission{}, err
	}
	span.SetAttributes(attribute.String("edi.reference_id", out.ReferenceID))
	return out, nil
}

// GetInboundDocuments returns the undelivered documents of the given type.
// Items are left encoded so callers can decode and fail them one by one.
func (c *Client) GetInboundDocuments(ctx context.Context, code edi.DocumentType) ([]json.RawMessage, error) {
	ctx, span := clientTracer.Start(ctx, "Provider.GetInboundDocuments", trace.WithAttributes(
		attribute.String("edi.document_type", code.String()),
	))
	defer span.End()

	var out struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/documents/inbound/"+url.PathEscape(code.String()), nil, &out); err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("edi.items", len(out.Items)))
	return out.Items, nil
}

// AcknowledgeInboundDocument marks a fetched document as handled so the
// provider stops redelivering it.
func (c *Client) AcknowledgeInboundDocument(ctx context.Context, code edi.DocumentType, referenceID, status string) error {
	ctx, span := clientTracer.Start(ctx, "Provider.AcknowledgeInboundDocument", trace.WithAttributes(
		attribute.String("edi.document_type", code.String()),
		attribute.String("edi.reference_id", referenceID),
	))
	defer span.End()

	path := fmt.Sprintf("/documents/inbound/%s/%s/acknowledge", url.PathEscape(code.String()), url.PathEscape(referenceID))
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

// do performs one request. Every failure is returned as *Error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.baseURL == "" {
		return &Error{Message: "edi provider base url is not configured"}
	}

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &Error{Message: fmt.Sprintf("encode request: %v", err), cause: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Message: fmt.Sprintf("build request: %v", err), cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set(headerCompanyID, c.companyID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("edi provider request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return Normalize(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Message: fmt.Sprintf("read response: %v", err), StatusCode: resp.StatusCode, cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newStatusError(resp.StatusCode, body)
		c.logger.Warn("edi provider returned error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Message: fmt.Sprintf("decode response: %v", err), StatusCode: resp.StatusCode, ResponseData: rawOrString(body), cause: err}
	}
	return nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, Normalize(err).Message)
}
