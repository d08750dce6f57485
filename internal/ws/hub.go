package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"lanpulse/internal/models"
)

// Hub tracks viewer connections grouped by facility and fans station updates
// out to them.
type Hub struct {
	mu           sync.RWMutex
	viewers      map[string]map[*Viewer]struct{}
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewHub builds the viewer hub.
func NewHub(pingInterval time.Duration, logger *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		viewers:      make(map[string]map[*Viewer]struct{}),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Add registers a viewer under its facility.
func (h *Hub) Add(v *Viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.viewers[v.FacilityID()]
	if !ok {
		room = make(map[*Viewer]struct{})
		h.viewers[v.FacilityID()] = room
	}
	room[v] = struct{}{}
}

// Remove drops a viewer.
func (h *Hub) Remove(v *Viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.viewers[v.FacilityID()]
	if !ok {
		return
	}
	delete(room, v)
	if len(room) == 0 {
		delete(h.viewers, v.FacilityID())
	}
}

// Publish sends a station update to every viewer of the facility.
func (h *Hub) Publish(snapshot models.StationSnapshot, facilityID string) {
	msg, err := json.Marshal(envelope{Type: "station_update", Data: snapshot})
	if err != nil {
		h.logger.Error("failed to encode station update", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for v := range h.viewers[facilityID] {
		v.Send(msg)
	}
}

// Start begins the ping loop keeping viewer connections alive.
func (h *Hub) Start(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.mu.RLock()
			for _, room := range h.viewers {
				for v := range room {
					_ = v.Ping()
				}
			}
			h.mu.RUnlock()
		}
	}
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
