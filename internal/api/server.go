package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/AaronLay10/behaviorgraph/internal/capability"
	"github.com/AaronLay10/behaviorgraph/internal/events"
	"github.com/AaronLay10/behaviorgraph/internal/graph"
	"github.com/AaronLay10/behaviorgraph/internal/sim"
	"github.com/AaronLay10/behaviorgraph/internal/storage/postgres"
	"github.com/AaronLay10/behaviorgraph/internal/world"
)

// GraphStore persists uploaded graph documents.
type GraphStore interface {
	SaveGraph(name string, document []byte) (int, error)
	ListGraphs() ([]postgres.GraphRow, error)
}

// EventHistory serves persisted events, newest first.
type EventHistory interface {
	Query(limit int, agentID string) ([]postgres.EventRow, error)
}

var (
	agentWorld   *world.World
	graphStore   GraphStore
	eventHistory EventHistory
)

// SetWorld sets the world the agent endpoints operate on.
func SetWorld(w *world.World) {
	agentWorld = w
}

// SetEventHistory enables GET /events/history.
func SetEventHistory(h EventHistory) {
	eventHistory = h
}

// SetGraphStore enables persistence of uploaded graphs.
func SetGraphStore(s GraphStore) {
	graphStore = s
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "behaviord",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	writeJSON(w, http.StatusOK, resp)
}

type OperatorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, OperatorResponse{OK: false, Error: msg})
}

// writeOpError maps world errors onto status codes.
func writeOpError(w http.ResponseWriter, err error) {
	var anf *world.AgentNotFoundError
	var nnf *world.NodeNotFoundError
	switch {
	case errors.As(err, &anf), errors.As(err, &nnf):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}

// eventsHandler returns buffered events, optionally for one agent.
func eventsHandler(w http.ResponseWriter, r *http.Request) {
	out := events.Recent(r.URL.Query().Get("agent"), queryLimit(r))
	if out == nil {
		out = []events.Event{}
	}
	writeJSON(w, http.StatusOK, out)
}

// eventsHistoryHandler reads the persisted event log.
func eventsHistoryHandler(w http.ResponseWriter, r *http.Request) {
	pg := eventHistory
	if pg == nil {
		writeError(w, http.StatusServiceUnavailable, "event persistence disabled")
		return
	}
	rows, err := pg.Query(postgres.ClampLimit(queryLimit(r)), r.URL.Query().Get("agent"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []postgres.EventRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func requireWorld(w http.ResponseWriter) bool {
	if agentWorld == nil {
		writeError(w, http.StatusServiceUnavailable, "world not running")
		return false
	}
	return true
}

func agentFromPath(w http.ResponseWriter, r *http.Request) *world.Agent {
	if !requireWorld(w) {
		return nil
	}
	a, err := agentWorld.Agent(r.PathValue("id"))
	if err != nil {
		writeOpError(w, err)
		return nil
	}
	return a
}

func listAgentsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireWorld(w) {
		return
	}
	filter := r.URL.Query().Get("graph")
	out := []world.Info{}
	for _, a := range agentWorld.Agents() {
		if filter != "" && a.Graph != filter {
			continue
		}
		out = append(out, a.Info())
	}
	writeJSON(w, http.StatusOK, out)
}

type SpawnRequest struct {
	Graph string `json:"graph"`
	Seed  uint64 `json:"seed,omitempty"`
}

func spawnHandler(w http.ResponseWriter, r *http.Request) {
	if !requireWorld(w) {
		return
	}
	var req SpawnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Graph == "" {
		writeError(w, http.StatusBadRequest, "graph required")
		return
	}
	if _, ok := agentWorld.Graph(req.Graph); !ok {
		writeError(w, http.StatusNotFound, "graph not found")
		return
	}

	bodySeed := req.Seed
	if bodySeed == 0 {
		bodySeed = rand.Uint64()
	}
	a, err := agentWorld.Spawn(req.Graph, sim.New(bodySeed, sim.DefaultOptions()), req.Seed)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, a.Info())
}

func getAgentHandler(w http.ResponseWriter, r *http.Request) {
	if a := agentFromPath(w, r); a != nil {
		writeJSON(w, http.StatusOK, a.Info())
	}
}

func despawnHandler(w http.ResponseWriter, r *http.Request) {
	if !requireWorld(w) {
		return
	}
	if err := agentWorld.Despawn(r.PathValue("id")); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OperatorResponse{OK: true})
}

func nodesHandler(w http.ResponseWriter, r *http.Request) {
	if a := agentFromPath(w, r); a != nil {
		writeJSON(w, http.StatusOK, a.Interp.Nodes())
	}
}

func nodeHandler(w http.ResponseWriter, r *http.Request) {
	a := agentFromPath(w, r)
	if a == nil {
		return
	}
	ref := r.PathValue("ref")
	st, ok := a.Interp.Lookup(ref)
	if !ok {
		writeOpError(w, &world.NodeNotFoundError{Agent: a.ID, Ref: ref})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func transitionsHandler(w http.ResponseWriter, r *http.Request) {
	if a := agentFromPath(w, r); a != nil {
		writeJSON(w, http.StatusOK, a.Interp.Transitions())
	}
}

// OperatorRequest is the body of the mutating agent endpoints. Node is a
// node ID or name; Category names a capability category.
type OperatorRequest struct {
	Node     string `json:"node,omitempty"`
	Category string `json:"category,omitempty"`
}

func decodeOperator(w http.ResponseWriter, r *http.Request) (*OperatorRequest, bool) {
	var req OperatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}
	return &req, true
}

func resetHandler(w http.ResponseWriter, r *http.Request) {
	if !requireWorld(w) {
		return
	}
	if err := agentWorld.Reset(r.PathValue("id"), "api"); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OperatorResponse{OK: true})
}

func jumpHandler(w http.ResponseWriter, r *http.Request) {
	if !requireWorld(w) {
		return
	}
	req, ok := decodeOperator(w, r)
	if !ok {
		return
	}
	if req.Node == "" {
		writeError(w, http.StatusBadRequest, "node required")
		return
	}
	if err := agentWorld.Jump(r.PathValue("id"), req.Node, "api"); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OperatorResponse{OK: true})
}

// providerHandler serves both detach and attach.
func providerHandler(attach bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireWorld(w) {
			return
		}
		req, ok := decodeOperator(w, r)
		if !ok {
			return
		}
		cat, ok := capability.ParseCategory(req.Category)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		op := agentWorld.Detach
		if attach {
			op = agentWorld.Attach
		}
		if err := op(r.PathValue("id"), cat, "api"); err != nil {
			writeOpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, OperatorResponse{OK: true})
	}
}

type GraphsResponse struct {
	Loaded []string            `json:"loaded"`
	Stored []postgres.GraphRow `json:"stored,omitempty"`
}

func listGraphsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireWorld(w) {
		return
	}
	resp := GraphsResponse{Loaded: agentWorld.GraphNames()}
	if graphStore != nil {
		rows, err := graphStore.ListGraphs()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Stored = rows
	}
	writeJSON(w, http.StatusOK, resp)
}

func getGraphHandler(w http.ResponseWriter, r *http.Request) {
	if !requireWorld(w) {
		return
	}
	def, ok := agentWorld.Graph(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "graph not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(def.Encode())
}

type PutGraphResponse struct {
	OK       bool   `json:"ok"`
	Name     string `json:"name"`
	Revision int    `json:"revision,omitempty"`
}

// putGraphHandler validates a document by compiling it against a simulated
// body, then registers it and stores it when a store is configured.
func putGraphHandler(w http.ResponseWriter, r *http.Request) {
	if !requireWorld(w) {
		return
	}
	name := r.PathValue("name")
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	def, err := graph.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := agentWorld.Check(def, sim.New(1, sim.DefaultOptions())); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := PutGraphResponse{OK: true, Name: name}
	if graphStore != nil {
		rev, err := graphStore.SaveGraph(name, def.Encode())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Revision = rev
		events.Emit("info", "graph.stored", "", map[string]interface{}{
			"graph":    name,
			"revision": rev,
		})
	}
	agentWorld.AddGraph(name, def)
	writeJSON(w, http.StatusOK, resp)
}

// NewMux builds the HTTP routes. Reads are open; agent operations need an
// operator or admin; spawning, despawning and graph uploads need an admin.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler)
	mux.HandleFunc("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /events", eventsHandler)
	mux.HandleFunc("GET /events/history", eventsHistoryHandler)
	mux.HandleFunc("GET /ws/events", wsEventsHandler)

	mux.HandleFunc("GET /agents", listAgentsHandler)
	mux.HandleFunc("POST /agents", RequireAdmin(spawnHandler))
	mux.HandleFunc("GET /agents/{id}", getAgentHandler)
	mux.HandleFunc("DELETE /agents/{id}", RequireAdmin(despawnHandler))
	mux.HandleFunc("GET /agents/{id}/nodes", nodesHandler)
	mux.HandleFunc("GET /agents/{id}/nodes/{ref}", nodeHandler)
	mux.HandleFunc("GET /agents/{id}/transitions", transitionsHandler)
	mux.HandleFunc("POST /agents/{id}/reset", RequireAnyRole(resetHandler))
	mux.HandleFunc("POST /agents/{id}/jump", RequireAnyRole(jumpHandler))
	mux.HandleFunc("POST /agents/{id}/detach", RequireAnyRole(providerHandler(false)))
	mux.HandleFunc("POST /agents/{id}/attach", RequireAnyRole(providerHandler(true)))

	mux.HandleFunc("POST /commands", RequireAnyRole(enqueueHandler))

	mux.HandleFunc("GET /graphs", listGraphsHandler)
	mux.HandleFunc("GET /graphs/{name}", getGraphHandler)
	mux.HandleFunc("PUT /graphs/{name}", RequireAdmin(putGraphHandler))
	return mux
}

// Serve runs the API on port until ctx is cancelled, using TLS when InitTLS
// loaded a certificate.
func Serve(ctx context.Context, port int, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewMux(),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         serverTLS,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if srv.TLSConfig != nil {
			log.Info("api listening", "addr", srv.Addr, "tls", true)
			err = srv.ListenAndServeTLS("", "")
		} else {
			log.Info("api listening", "addr", srv.Addr, "tls", false)
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
