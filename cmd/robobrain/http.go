package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corvid-robotics/robobrain/internal/config"
	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
	"github.com/corvid-robotics/robobrain/pkg/orchestrator"
	"github.com/corvid-robotics/robobrain/pkg/state"
	"github.com/corvid-robotics/robobrain/pkg/world"
)

// wsUpgrader accepts any origin; the reference surface is meant to sit
// behind the operator's own edge proxy, which is where origin checks
// belong in a real deployment.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type apiServer struct {
	orch *orchestrator.Orchestrator
	sim  *world.Simulator
	log  logr.Logger
}

// runHTTP serves the reference HTTP/WebSocket surface until ctx is
// cancelled: POST a turn or an approval response, GET a session's last
// snapshot, stream a session live over a WebSocket, or scrape Prometheus
// metrics straight off the Orchestrator's own registry.
func runHTTP(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator, sim *world.Simulator, log logr.Logger) error {
	api := &apiServer{orch: orch, sim: sim, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/healthz", api.handleHealthz)
	r.Get("/metrics", promhttp.HandlerFor(orch.Metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP)

	base := cfg.HTTP.Path
	if base == "" {
		base = "/api"
	}
	r.Route(base, func(r chi.Router) {
		r.Post("/sessions/{sessionID}/turn", api.handleTurn)
		r.Post("/sessions/{sessionID}/approval", api.handleApproval)
		r.Get("/sessions/{sessionID}", api.handleGetSession)
	})
	r.Get("/ws/{sessionID}", api.handleWebsocket)

	addr := cfg.HTTP.Port
	if addr == "" {
		addr = "8080"
	}
	if addr[0] != ':' {
		addr = ":" + addr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr, "base_path", base)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (a *apiServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type turnRequest struct {
	Utterance string `json:"utterance"`
}

func (a *apiServer) handleTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req turnRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperrors.New(apperrors.ErrorTypeValidation, "invalid request body"))
			return
		}
	}

	snap, err := a.orch.RunTurn(r.Context(), sessionID, req.Utterance)
	if err != nil {
		writeError(w, err)
		return
	}
	a.sim.Sync(snap)
	writeSnapshot(w, snap)
}

type approvalRequest struct {
	Action       string                 `json:"action"`
	EditedParams map[string]interface{} `json:"edited_params,omitempty"`
}

func (a *apiServer) handleApproval(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req approvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.ErrorTypeValidation, "invalid request body"))
		return
	}

	resp := state.ApprovalResponse{
		Action:       state.ApprovalAction(req.Action),
		EditedParams: req.EditedParams,
	}
	snap, err := a.orch.ResumeApproval(r.Context(), sessionID, resp)
	if err != nil {
		writeError(w, err)
		return
	}
	a.sim.Sync(snap)
	writeSnapshot(w, snap)
}

func (a *apiServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	cp, err := a.orch.Store.Load(r.Context(), sessionID, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeSnapshot(w, cp.Snapshot)
}

// handleWebsocket upgrades the connection and treats every inbound text
// frame as an utterance for one more turn, pushing the resulting snapshot
// back as a JSON frame. There's no separate subscribe/broadcast fan-out
// here: one socket drives one session, the same single-writer-per-session
// discipline RunTurn already enforces.
func (a *apiServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Error(err, "websocket upgrade failed", "session_id", sessionID)
		return
	}
	defer conn.Close()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		snap, err := a.orch.RunTurn(r.Context(), sessionID, string(payload))
		if err != nil {
			_ = conn.WriteJSON(map[string]string{"error": err.Error()})
			continue
		}
		a.sim.Sync(snap)

		body, err := state.Marshal(snap)
		if err != nil {
			_ = conn.WriteJSON(map[string]string{"error": err.Error()})
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			return
		}
	}
}

func writeSnapshot(w http.ResponseWriter, snap state.BrainState) {
	body, err := state.Marshal(snap)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := err.Error()
	if appErr, ok := err.(*apperrors.AppError); ok {
		status = appErr.StatusCode
		message = appErr.Message
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + jsonEscape(message) + `"}`))
}

func jsonEscape(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(out[1 : len(out)-1])
}
