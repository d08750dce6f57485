package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"lanpulse/internal/http/middleware"
	"lanpulse/internal/service"
)

// AgentHandlers serves the station agent endpoints.
type AgentHandlers struct {
	agent  *service.Agent
	logger *zap.Logger
}

// NewAgentHandlers returns handler.
func NewAgentHandlers(agent *service.Agent, logger *zap.Logger) *AgentHandlers {
	return &AgentHandlers{agent: agent, logger: logger}
}

type registerRequest struct {
	MACAddress string `json:"mac_address"`
	IPAddress  string `json:"ip_address"`
	Hostname   string `json:"hostname"`
}

// Register handles POST /agent/register.
func (h *AgentHandlers) Register(w http.ResponseWriter, r *http.Request) {
	facilityID, ok := middleware.FacilityIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.agent.Register(r.Context(), service.RegisterInput{
		FacilityID: facilityID,
		MACAddress: req.MACAddress,
		IPAddress:  req.IPAddress,
		Hostname:   req.Hostname,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if result.IsNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

type heartbeatRequest struct {
	IPAddress      string `json:"ip_address"`
	ReportedStatus string `json:"reported_status"`
}

// Heartbeat handles POST /agent/stations/{id}/heartbeat.
func (h *AgentHandlers) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.FacilityIDFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req heartbeatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.agent.Heartbeat(r.Context(), service.HeartbeatInput{
		StationID:      r.PathValue("id"),
		IPAddress:      req.IPAddress,
		ReportedStatus: req.ReportedStatus,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Logout handles POST /agent/stations/{id}/logout.
func (h *AgentHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.FacilityIDFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	station, err := h.agent.Logout(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, station)
}
