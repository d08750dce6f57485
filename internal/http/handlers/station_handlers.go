package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"lanpulse/internal/http/middleware"
	"lanpulse/internal/models"
	"lanpulse/internal/storage"
)

// OccupancyReader exposes the cached occupancy fast path.
type OccupancyReader interface {
	GetOccupancy(ctx context.Context, stationID string) (*models.StationSnapshot, error)
}

// StationHandlers serves station read endpoints.
type StationHandlers struct {
	store  storage.Store
	cache  OccupancyReader
	logger *zap.Logger
}

// NewStationHandlers returns handler. Cache may be nil.
func NewStationHandlers(store storage.Store, cache OccupancyReader, logger *zap.Logger) *StationHandlers {
	return &StationHandlers{store: store, cache: cache, logger: logger}
}

type stationView struct {
	Station *models.Station `json:"station"`
	Session *models.Session `json:"session,omitempty"`
}

// Get handles GET /api/stations/{id}. The occupancy cache answers first when
// it holds a snapshot; otherwise postgres is asked.
func (h *StationHandlers) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.OperatorIDFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	stationID := r.PathValue("id")

	if h.cache != nil {
		snap, err := h.cache.GetOccupancy(r.Context(), stationID)
		if err != nil {
			h.logger.Warn("occupancy cache read failed", zap.String("station_id", stationID), zap.Error(err))
		} else if snap != nil {
			writeJSON(w, http.StatusOK, stationView{Station: &snap.Station, Session: snap.Session})
			return
		}
	}

	station, err := h.store.Stations().Get(r.Context(), stationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "station not found")
			return
		}
		h.logger.Error("station lookup failed", zap.String("station_id", stationID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	view := stationView{Station: station}
	occupying, err := h.store.Sessions().ListOccupying(r.Context(), station.ID)
	if err != nil {
		h.logger.Error("occupying session lookup failed", zap.String("station_id", stationID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(occupying) > 0 {
		view.Session = &occupying[0]
	}
	writeJSON(w, http.StatusOK, view)
}
