package httpserver

import (
	"net/http"

	"lanpulse/internal/http/handlers"
	"lanpulse/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	AgentHandlers   *handlers.AgentHandlers
	SessionHandlers *handlers.SessionHandlers
	StationHandlers *handlers.StationHandlers
	WSHandler       *handlers.WSHandler

	OperatorAuth func(http.Handler) http.Handler
	AgentAuth    func(http.Handler) http.Handler
}

// NewRouter wires HTTP routes with middleware.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handlers.Health)

	agent := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, deps.AgentAuth)
	}
	mux.Handle("POST /agent/register", agent(deps.AgentHandlers.Register))
	mux.Handle("POST /agent/stations/{id}/heartbeat", agent(deps.AgentHandlers.Heartbeat))
	mux.Handle("POST /agent/stations/{id}/logout", agent(deps.AgentHandlers.Logout))

	operator := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, deps.OperatorAuth)
	}
	mux.Handle("POST /api/sessions", operator(deps.SessionHandlers.Start))
	mux.Handle("POST /api/sessions/{id}/extend", operator(deps.SessionHandlers.Extend))
	mux.Handle("POST /api/sessions/{id}/end", operator(deps.SessionHandlers.End))
	mux.Handle("POST /api/sessions/{id}/undo", operator(deps.SessionHandlers.Undo))
	mux.Handle("GET /api/sessions/{id}/cost-preview", operator(deps.SessionHandlers.Preview))
	mux.Handle("GET /api/sessions/{id}/ledger", operator(deps.SessionHandlers.Ledger))
	mux.Handle("GET /api/stations/{id}", operator(deps.StationHandlers.Get))

	mux.Handle("GET /ws", operator(http.HandlerFunc(deps.WSHandler.Serve)))

	return mux
}
