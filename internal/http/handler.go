package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/datalayer"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/ecommerce"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/session"
)

type Handler struct {
	sessions *session.Registry
	logger   *zap.Logger
}

func NewHandler(sessions *session.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, logger: logger}
}

type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"service":  "analytics-service",
		"sessions": h.sessions.Len(),
	})
}

type openSessionRequest struct {
	Currency      string `json:"currency"`
	RenderContext string `json:"renderContext"`
}

type openSessionResponse struct {
	SessionID     string `json:"sessionId"`
	RenderContext string `json:"renderContext"`
	Currency      string `json:"currency"`
}

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	render, err := datalayer.ParseRenderContext(req.RenderContext)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = ecommerce.DefaultCurrency
	}

	s, err := h.sessions.Open(render, currency)
	if err != nil {
		h.logger.Error("open session failed", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "could not open session")
		return
	}

	writeJSON(w, http.StatusCreated, openSessionResponse{
		SessionID:     s.ID,
		RenderContext: string(s.Render),
		Currency:      s.Currency(),
	})
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "sessionId")); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type currencyRequest struct {
	ISOCode string `json:"isoCode"`
}

func (h *Handler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	var req currencyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.ISOCode))
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "isoCode is required")
		return
	}

	s.SetCurrency(code)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "currency": code})
}

func (h *Handler) PostSignal(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	var req signalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dispatchSignal(r.Context(), s.Tracker, req); err != nil {
		if errors.Is(err, errUnknownSignal) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid signal payload")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (h *Handler) GetDataLayer(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	reader, ok := datalayer.ReaderOf(s.Queue.Sink())
	if !ok {
		writeError(w, r, http.StatusNotImplemented, "data layer of sink "+s.Queue.Sink().Name()+" is not readable")
		return
	}
	entries, err := reader.Entries(r.Context())
	if err != nil {
		h.logger.Warn("read data layer failed", zap.String("session_id", s.ID), zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "could not read data layer")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": s.ID,
		"dataLayer": entries,
	})
}

func (h *Handler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	h.logger.Error("session lookup failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:         msg,
		CorrelationID: GetCorrelationID(r.Context()),
	})
}
