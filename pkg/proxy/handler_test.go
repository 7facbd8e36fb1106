package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdhe/animal-speech-proxy/pkg/prompt"
	"github.com/abdhe/animal-speech-proxy/pkg/provider"
	"github.com/abdhe/animal-speech-proxy/pkg/resilience"
)

// --- Stub implementations ---

type stubTransformer struct {
	out        string
	err        error
	retryAfter time.Duration

	gotAnimal  prompt.Animal
	gotEmotion prompt.Emotion
	gotChat    string
}

func (s *stubTransformer) TransformPost(_ context.Context, content string, a prompt.Animal, e prompt.Emotion) (string, error) {
	s.gotAnimal, s.gotEmotion = a, e
	if s.err != nil {
		return "", s.err
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrInvalidInput
	}
	return s.out, nil
}

func (s *stubTransformer) TransformComment(_ context.Context, content string, a prompt.Animal) (string, error) {
	s.gotAnimal = a
	if s.err != nil {
		return "", s.err
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrInvalidInput
	}
	return s.out, nil
}

func (s *stubTransformer) TransformChat(_ context.Context, text, animal string) (string, error) {
	s.gotChat = animal
	if s.err != nil {
		return "", s.err
	}
	return s.out, nil
}

func (s *stubTransformer) RetryAfter() time.Duration { return s.retryAfter }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMux(svc Transformer, keys KeyReporter) http.Handler {
	logger := discardLogger()
	return NewServeMux(NewHandler(svc, keys, logger), nil, logger)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- Tests ---

func TestGeneratePost_Success(t *testing.T) {
	stub := &stubTransformer{out: "냥냥 오늘 산책했다옹"}
	h := newTestMux(stub, nil)

	rec := do(t, h, http.MethodPost, "/generate/post", `{"content":"오늘 산책했다","emotion":"HAPPY","post_type":"cat"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	body := decodeBody(t, rec)
	assert.EqualValues(t, 200, body["status_code"])
	assert.Equal(t, "Successfully transformed text", body["message"])
	assert.Equal(t, "냥냥 오늘 산책했다옹", body["data"])
	assert.Equal(t, prompt.Cat, stub.gotAnimal)
	assert.Equal(t, prompt.Happy, stub.gotEmotion)
}

func TestGeneratePost_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"empty content", `{"content":"  ","emotion":"normal","post_type":"dog"}`, nil, http.StatusBadRequest, "Empty Input"},
		{"bad animal", `{"content":"hi","emotion":"normal","post_type":"bird"}`, nil, http.StatusUnprocessableEntity, "wrong post_type or emotion"},
		{"bad emotion", `{"content":"hi","emotion":"bored","post_type":"cat"}`, nil, http.StatusUnprocessableEntity, "wrong post_type or emotion"},
		{"malformed json", `{"content":`, nil, http.StatusUnprocessableEntity, "invalid request body"},
		{"upstream failure", `{"content":"hi","emotion":"normal","post_type":"cat"}`,
			fmt.Errorf("proxy: post: %w", &provider.StatusError{Provider: "gemini", Code: 500}), http.StatusBadGateway, "upstream model call failed"},
		{"upstream unreachable", `{"content":"hi","emotion":"normal","post_type":"cat"}`,
			fmt.Errorf("proxy: post: %w", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}),
			http.StatusBadGateway, "upstream model call failed"},
		{"timeout", `{"content":"hi","emotion":"normal","post_type":"cat"}`,
			fmt.Errorf("proxy: post: %w", context.DeadlineExceeded), http.StatusBadGateway, "upstream model call failed"},
		{"unexpected", `{"content":"hi","emotion":"normal","post_type":"cat"}`,
			errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestMux(&stubTransformer{out: "x", err: tt.err}, nil)

			rec := do(t, h, http.MethodPost, "/generate/post", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.NotEmpty(t, body["error"])
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, body["detail"])
			}
		})
	}
}

func TestGeneratePost_BusySetsRetryAfter(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		retryAfter time.Duration
		want       string
	}{
		{"pool exhausted", fmt.Errorf("proxy: post: %w", ErrServiceBusy), 1500 * time.Millisecond, "2"},
		{"circuit open", fmt.Errorf("proxy: post: %w", resilience.ErrCircuitOpen), 0, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestMux(&stubTransformer{err: tt.err, retryAfter: tt.retryAfter}, nil)

			rec := do(t, h, http.MethodPost, "/generate/post", `{"content":"hi","emotion":"normal","post_type":"cat"}`)

			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Retry-After"))
		})
	}
}

func TestGenerateComment(t *testing.T) {
	stub := &stubTransformer{out: "귀엽다멍"}
	h := newTestMux(stub, nil)

	rec := do(t, h, http.MethodPost, "/generate/comment", `{"content":"귀엽다","post_type":"dog"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "귀엽다멍", decodeBody(t, rec)["data"])
	assert.Equal(t, prompt.Dog, stub.gotAnimal)

	rec = do(t, h, http.MethodPost, "/generate/comment", `{"content":"","post_type":"dog"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateChat(t *testing.T) {
	svc := NewService(ServiceConfig{Generator: &fakeGenerator{}, Logger: discardLogger()})
	h := newTestMux(svc, nil)

	rec := do(t, h, http.MethodPost, "/generate/chat", `{"text":"안녕하세요","post_type":"cat"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 200, body["status_code"])
	assert.Equal(t, "안냥하세야옹", body["message"])
	_, hasData := body["data"]
	assert.False(t, hasData)

	rec = do(t, h, http.MethodPost, "/generate/chat", `{"text":"안녕","post_type":"raccoon"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "구리구리안녕구리", decodeBody(t, rec)["message"])

	rec = do(t, h, http.MethodPost, "/generate/chat", `{"text":"안녕","post_type":"bird"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "wrong post_type", decodeBody(t, rec)["detail"])

	rec = do(t, h, http.MethodPost, "/generate/chat", `{"text":"","post_type":"cat"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKeyStatus(t *testing.T) {
	pool, err := resilience.NewKeyPool([]string{"secret-one", "secret-two"}, 2)
	require.NoError(t, err)
	_, _ = pool.Acquire()
	_, _ = pool.Acquire()
	_, _ = pool.Acquire()

	h := newTestMux(&stubTransformer{}, pool)
	rec := do(t, h, http.MethodGet, "/keys/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-one")
	assert.NotContains(t, rec.Body.String(), "secret-two")

	var resp keysResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Keyless)
	assert.Equal(t, 2, resp.Size)
	assert.Equal(t, 1, resp.Available)
	require.Len(t, resp.Keys, 2)
	assert.Equal(t, "key_1", resp.Keys[0].ID)
	assert.Equal(t, 2, resp.Keys[0].Used)
	assert.False(t, resp.Keys[0].Available)
	assert.NotEmpty(t, resp.Keys[0].ResetAt)
}

func TestKeyStatus_Keyless(t *testing.T) {
	h := newTestMux(&stubTransformer{}, nil)

	rec := do(t, h, http.MethodGet, "/keys/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp keysResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Keyless)
	assert.Empty(t, resp.Keys)
}

func TestRoutes(t *testing.T) {
	h := newTestMux(&stubTransformer{}, nil)

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/generate/post", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBodyTooLarge(t *testing.T) {
	h := newTestMux(&stubTransformer{out: "x"}, nil)
	big := `{"content":"` + strings.Repeat("a", maxBodyBytes) + `","emotion":"normal","post_type":"cat"}`

	rec := do(t, h, http.MethodPost, "/generate/post", big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "1", retryAfterSeconds(0))
	assert.Equal(t, "1", retryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, "60", retryAfterSeconds(time.Minute))
	assert.Equal(t, "61", retryAfterSeconds(time.Minute+time.Millisecond))
}
