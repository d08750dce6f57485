package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"lanpulse/internal/http/middleware"
	"lanpulse/internal/service"
)

// SessionHandlers serves the operator session endpoints.
type SessionHandlers struct {
	engine *service.Engine
	logger *zap.Logger
}

// NewSessionHandlers returns handler.
func NewSessionHandlers(engine *service.Engine, logger *zap.Logger) *SessionHandlers {
	return &SessionHandlers{engine: engine, logger: logger}
}

type startRequest struct {
	StationID   string `json:"station_id"`
	PricingType string `json:"pricing_type"`
	BundleID    string `json:"bundle_id,omitempty"`
	Minutes     int    `json:"minutes,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}

// Start handles POST /api/sessions.
func (h *SessionHandlers) Start(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.OperatorIDFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StationID == "" {
		writeError(w, http.StatusBadRequest, "station_id is required")
		return
	}

	session, err := h.engine.Start(r.Context(), service.StartInput{
		StationID:   req.StationID,
		PricingType: req.PricingType,
		BundleID:    req.BundleID,
		Minutes:     req.Minutes,
		UserID:      req.UserID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

type extendRequest struct {
	PricingType string `json:"pricing_type"`
	BundleID    string `json:"bundle_id,omitempty"`
	Minutes     int    `json:"minutes,omitempty"`
}

// Extend handles POST /api/sessions/{id}/extend.
func (h *SessionHandlers) Extend(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.OperatorIDFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req extendRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.engine.Extend(r.Context(), service.ExtendInput{
		SessionID:   r.PathValue("id"),
		PricingType: req.PricingType,
		BundleID:    req.BundleID,
		Minutes:     req.Minutes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// End handles POST /api/sessions/{id}/end.
func (h *SessionHandlers) End(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.OperatorIDFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	session, err := h.engine.End(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Undo handles POST /api/sessions/{id}/undo.
func (h *SessionHandlers) Undo(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.OperatorIDFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	session, err := h.engine.Undo(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Preview handles GET /api/sessions/{id}/cost-preview.
func (h *SessionHandlers) Preview(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.OperatorIDFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	preview, err := h.engine.Preview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// Ledger handles GET /api/sessions/{id}/ledger.
func (h *SessionHandlers) Ledger(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.OperatorIDFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entries, err := h.engine.LedgerEntries(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
