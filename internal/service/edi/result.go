package edi

import (
	"github.com/Additional-Code/edisync/internal/edi"
	"github.com/Additional-Code/edisync/internal/provider"
)

// SendResult is the outcome of an outbound document. Success false carries
// the normalized provider error; callers decide whether to retry. Rejected
// marks input that failed validation and was never submitted.
type SendResult struct {
	Success     bool            `json:"success"`
	ReferenceID string          `json:"referenceId,omitempty"`
	Status      string          `json:"status,omitempty"`
	Rejected    bool            `json:"rejected,omitempty"`
	Error       *provider.Error `json:"error,omitempty"`
}

// Retryable reports whether sending the same input again may succeed.
func (r SendResult) Retryable() bool {
	return !r.Success && !r.Rejected && r.Error.Temporary()
}

// BatchResult summarizes one poll of an inbound document type. Success is
// false only when the batch could not be fetched; per-document failures are
// counted in Failed.
type BatchResult struct {
	DocumentType edi.DocumentType `json:"documentType"`
	Success      bool             `json:"success"`
	Count        int              `json:"count"`
	Processed    int              `json:"processed"`
	Failed       int              `json:"failed"`
	Error        *provider.Error  `json:"error,omitempty"`
}

func sendFailure(err error) SendResult {
	return SendResult{Success: false, Error: provider.Normalize(err)}
}
