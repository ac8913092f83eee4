package apierrors

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Response is the envelope every endpoint returns, success or failure.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    []any  `json:"data"`
}

// Handler writes taxonomy-mapped HTTP responses.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new error handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

// HTTPStatus maps an error kind to an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes the error envelope for err.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := HTTPStatus(err)
	h.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("kind", string(KindOf(err))),
		zap.Int("status", status),
		zap.String("request_id", r.Header.Get("X-Request-ID")),
		zap.Error(err))

	h.write(w, status, Response{
		Status:  "Error",
		Message: message,
		Data:    []any{map[string]any{"error": err.Error()}},
	})
}

// WriteOK writes the success envelope.
func (h *Handler) WriteOK(w http.ResponseWriter, message string, data []any) {
	if data == nil {
		data = []any{}
	}
	h.write(w, http.StatusOK, Response{Status: "OK", Message: message, Data: data})
}

func (h *Handler) write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
