// Package provider defines the text-generation backends and shared types.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed upstream response is kept.
const maxErrorBody = 4 << 10

// Request represents a generation request to a backend.
type Request struct {
	Model       string
	Prompt      string
	Temperature float32
	TopP        float32
	MaxTokens   int32
	APIKey      string // injected by the key pool; may be empty for keyless backends
}

// Response represents a complete generation response.
type Response struct {
	Text         string
	PromptTokens int32
	OutputTokens int32
}

// TextGenerator is the interface all generation backends implement.
type TextGenerator interface {
	// Name returns a short identifier for the backend (e.g. "gemini", "vllm").
	Name() string

	// Generate performs a unary generation call. The context should carry a deadline.
	Generate(ctx context.Context, req Request) (Response, error)
}

// StatusError is returned when a backend answers with a non-200 status.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: API error %d: %s", e.Provider, e.Code, e.Body)
}

// StatusCode exposes the upstream HTTP status for retry and breaker classification.
func (e *StatusError) StatusCode() int {
	return e.Code
}

func newStatusError(provider string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Provider: provider,
		Code:     resp.StatusCode,
		Body:     strings.TrimSpace(string(body)),
	}
}
