package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/abdhe/animal-speech-proxy/pkg/convert"
	"github.com/abdhe/animal-speech-proxy/pkg/prompt"
	"github.com/abdhe/animal-speech-proxy/pkg/resilience"
)

const maxBodyBytes = 64 << 10

// Transformer is what the handler needs from the transformation service.
type Transformer interface {
	TransformPost(ctx context.Context, content string, animal prompt.Animal, emotion prompt.Emotion) (string, error)
	TransformComment(ctx context.Context, content string, animal prompt.Animal) (string, error)
	TransformChat(ctx context.Context, text, animal string) (string, error)
	RetryAfter() time.Duration
}

// KeyReporter exposes pool state without secrets. *resilience.KeyPool implements it.
type KeyReporter interface {
	Size() int
	AvailableCount() int
	Snapshot() []resilience.KeyStatus
}

// Handler serves the public HTTP API.
type Handler struct {
	svc    Transformer
	keys   KeyReporter
	logger *slog.Logger
}

// NewHandler creates a Handler. keys may be nil when the backend runs without keys.
func NewHandler(svc Transformer, keys KeyReporter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, keys: keys, logger: logger}
}

// NewServeMux registers every route and wraps the mux with middleware.
// throttle may be nil to disable per-client limiting.
func NewServeMux(h *Handler, throttle *ClientThrottle, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /generate/post", h.GeneratePost)
	mux.HandleFunc("POST /generate/comment", h.GenerateComment)
	mux.HandleFunc("POST /generate/chat", h.GenerateChat)
	mux.HandleFunc("GET /keys/status", h.KeyStatus)
	mux.HandleFunc("GET /{$}", h.Root)

	// Recovery innermost so panics are caught before logging.
	var wrapped http.Handler = recoveryMiddleware(logger, mux)
	if throttle != nil {
		wrapped = throttle.Middleware(wrapped)
	}
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

type postRequest struct {
	Content  string `json:"content"`
	Emotion  string `json:"emotion"`
	PostType string `json:"post_type"`
}

type commentRequest struct {
	Content  string `json:"content"`
	PostType string `json:"post_type"`
}

type chatRequest struct {
	Text     string `json:"text"`
	PostType string `json:"post_type"`
}

type transformResponse struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Data       string `json:"data"`
}

type chatResponse struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type keyStatusResponse struct {
	ID        string `json:"id"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Available bool   `json:"available"`
	ResetAt   string `json:"reset_at,omitempty"`
}

type keysResponse struct {
	Keyless   bool                `json:"keyless"`
	Size      int                 `json:"size"`
	Available int                 `json:"available"`
	Keys      []keyStatusResponse `json:"keys"`
}

const successMessage = "Successfully transformed text"

// GeneratePost rewrites a post with the model in the requested animal voice and mood.
func (h *Handler) GeneratePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if !h.decode(w, r, &req) {
		return
	}

	animal, aerr := prompt.ParseAnimal(req.PostType)
	emotion, eerr := prompt.ParseEmotion(req.Emotion)
	if aerr != nil || eerr != nil {
		writeError(w, http.StatusUnprocessableEntity, "unprocessable_entity", "wrong post_type or emotion")
		return
	}

	out, err := h.svc.TransformPost(r.Context(), req.Content, animal, emotion)
	if err != nil {
		h.writeServiceError(w, r, err, "wrong post_type or emotion")
		return
	}
	writeJSON(w, http.StatusOK, transformResponse{StatusCode: http.StatusOK, Message: successMessage, Data: out})
}

// GenerateComment rewrites a comment with the model in the requested animal voice.
func (h *Handler) GenerateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !h.decode(w, r, &req) {
		return
	}

	animal, err := prompt.ParseAnimal(req.PostType)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unprocessable_entity", "wrong post_type or emotion")
		return
	}

	out, err := h.svc.TransformComment(r.Context(), req.Content, animal)
	if err != nil {
		h.writeServiceError(w, r, err, "wrong post_type or emotion")
		return
	}
	writeJSON(w, http.StatusOK, transformResponse{StatusCode: http.StatusOK, Message: successMessage, Data: out})
}

// GenerateChat rewrites a chat message with the local rule set.
func (h *Handler) GenerateChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.svc.TransformChat(r.Context(), req.Text, req.PostType)
	if err != nil {
		h.writeServiceError(w, r, err, "wrong post_type")
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{StatusCode: http.StatusOK, Message: out})
}

// KeyStatus reports per-key usage in the current window.
func (h *Handler) KeyStatus(w http.ResponseWriter, _ *http.Request) {
	if h.keys == nil {
		writeJSON(w, http.StatusOK, keysResponse{Keyless: true, Keys: []keyStatusResponse{}})
		return
	}

	snap := h.keys.Snapshot()
	keys := make([]keyStatusResponse, 0, len(snap))
	for _, st := range snap {
		ks := keyStatusResponse{ID: st.ID, Used: st.Used, Limit: st.Limit, Available: st.Available}
		if !st.ResetAt.IsZero() {
			ks.ResetAt = st.ResetAt.UTC().Format(time.RFC3339)
		}
		keys = append(keys, ks)
	}
	writeJSON(w, http.StatusOK, keysResponse{
		Size:      h.keys.Size(),
		Available: h.keys.AvailableCount(),
		Keys:      keys,
	})
}

// Root is a liveness message.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "animal speech proxy is running"})
}

// decode reads a JSON body. Malformed bodies are 422, like a failed schema check.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
			return false
		}
		writeError(w, http.StatusUnprocessableEntity, "unprocessable_entity", "invalid request body")
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, badValue string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", "Empty Input")

	case errors.Is(err, prompt.ErrUnknownAnimal),
		errors.Is(err, prompt.ErrUnknownEmotion),
		errors.Is(err, convert.ErrUnsupportedAnimal):
		writeError(w, http.StatusUnprocessableEntity, "unprocessable_entity", badValue)

	case errors.Is(err, ErrServiceBusy), errors.Is(err, resilience.ErrCircuitOpen):
		w.Header().Set("Retry-After", retryAfterSeconds(h.svc.RetryAfter()))
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "no API key available, retry later")

	case resilience.StatusCode(err) != 0, resilience.IsTransportError(err), errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("upstream failure", "error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusBadGateway, "bad_gateway", "upstream model call failed")

	default:
		h.logger.Error("transformation failed", "error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal_server_error", "")
	}
}

// retryAfterSeconds renders d as whole seconds, at least one.
func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// writeJSON marshals v and writes it with the given status. A marshal failure becomes a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal_server_error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorResponse{Error: code, Detail: detail})
}
