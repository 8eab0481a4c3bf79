package httpchat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"ideabot/internal/collector"
	"ideabot/internal/util/jsonutil"
)

const noSessionHint = "Send a start request to describe your business idea."

// Handler exposes the collector over JSON and websocket endpoints.
type Handler struct {
	collector *collector.Collector
	origins   []string
	log       *log.Logger
}

func New(c *collector.Collector, allowedOrigins []string, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{collector: c, origins: allowedOrigins, log: logger}
}

// Routes returns the router wrapped with CORS.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", h.stage).Methods(http.MethodGet)
	api := r.PathPrefix("/api/sessions/{id}").Subrouter()
	api.HandleFunc("/start", h.start).Methods(http.MethodPost)
	api.HandleFunc("/messages", h.message).Methods(http.MethodPost)
	api.HandleFunc("/reset", h.reset).Methods(http.MethodPost)
	r.HandleFunc("/ws", h.HandleWS).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

// SessionKey namespaces client supplied ids.
func SessionKey(id string) string {
	return "http_" + strings.TrimSpace(id)
}

type startRequest struct {
	Name string `json:"name,omitempty"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type sessionResponse struct {
	Session string   `json:"session"`
	Stage   string   `json:"stage"`
	Replies []string `json:"replies"`
	Error   string   `json:"error,omitempty"`
}

// bufferOutbox collects replies for a single request.
type bufferOutbox struct {
	mu   sync.Mutex
	msgs []string
}

func (b *bufferOutbox) Send(_ context.Context, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, text)
	return nil
}

func (b *bufferOutbox) replies() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.msgs == nil {
		return []string{}
	}
	return append([]string(nil), b.msgs...)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mode":   h.collector.Strategy().Name,
	})
}

func (h *Handler) stage(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Session: id,
		Stage:   string(h.collector.StageOf(SessionKey(id))),
		Replies: []string{},
	})
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, id, "invalid JSON body")
			return
		}
	}
	out := &bufferOutbox{}
	if err := h.collector.Start(r.Context(), SessionKey(id), req.Name, out); err != nil {
		h.log.Printf("httpchat: start %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, id, "internal error")
		return
	}
	h.respond(w, http.StatusOK, id, out)
}

func (h *Handler) message(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, id, "invalid JSON body")
		return
	}
	out := &bufferOutbox{}
	err := h.collector.Handle(r.Context(), SessionKey(id), req.Text, out)
	switch {
	case errors.Is(err, collector.ErrNoSession):
		_ = out.Send(r.Context(), noSessionHint)
		h.respond(w, http.StatusConflict, id, out)
	case err != nil:
		h.log.Printf("httpchat: message %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, id, "internal error")
	default:
		h.respond(w, http.StatusOK, id, out)
	}
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	out := &bufferOutbox{}
	if err := h.collector.Reset(r.Context(), SessionKey(id), out); err != nil {
		h.log.Printf("httpchat: reset %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, id, "internal error")
		return
	}
	h.respond(w, http.StatusOK, id, out)
}

func (h *Handler) respond(w http.ResponseWriter, status int, id string, out *bufferOutbox) {
	writeJSON(w, status, sessionResponse{
		Session: id,
		Stage:   string(h.collector.StageOf(SessionKey(id))),
		Replies: out.replies(),
	})
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		writeError(w, http.StatusBadRequest, "", "session id is required")
		return "", false
	}
	return id, true
}

func writeError(w http.ResponseWriter, status int, id, msg string) {
	writeJSON(w, status, sessionResponse{Session: id, Replies: []string{}, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := jsonutil.MarshalNoEscape(v)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
