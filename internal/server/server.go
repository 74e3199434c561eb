// Package server exposes the list engine over HTTP for the browser
// demo: REST reads against the collection, a stats endpoint, and a
// websocket that streams engine events out and accepts scroll commands
// in. The websocket clients act as the presentation layer; the engine
// pushes render frames to them through a broadcast RenderHost.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/conneroisu/vlist/internal/collection"
	"github.com/conneroisu/vlist/internal/config"
	vlisterrors "github.com/conneroisu/vlist/internal/errors"
	"github.com/conneroisu/vlist/internal/events"
	"github.com/conneroisu/vlist/internal/logging"
	"github.com/conneroisu/vlist/internal/types"
	"github.com/conneroisu/vlist/internal/viewport"
)

// wsEvent is the frame envelope streamed to websocket clients.
type wsEvent struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

// command is an inbound client frame steering the engine.
type command struct {
	Action    string  `json:"action"` // scroll | scrollTo | settle | setStrategy
	Delta     float64 `json:"delta,omitempty"`
	Index     int     `json:"index,omitempty"`
	Alignment string  `json:"alignment,omitempty"`
	Strategy  string  `json:"strategy,omitempty"`
}

// renderFrame mirrors viewport.RenderHost.RenderRange for the wire.
type renderFrame struct {
	Start int            `json:"start"`
	End   int            `json:"end"`
	Rows  []viewport.Row `json:"rows"`
}

// transformFrame mirrors viewport.RenderHost.ApplyTransform.
type transformFrame struct {
	Translate float64 `json:"translate"`
}

// scrollbarFrame mirrors viewport.RenderHost.SetScrollbar.
type scrollbarFrame struct {
	ThumbPos  float64 `json:"thumbPos"`
	ThumbSize float64 `json:"thumbSize"`
}

// broadcastHost pushes engine render output to all websocket clients.
type broadcastHost struct {
	hub *Hub
}

func (b *broadcastHost) ApplyTransform(translate float64) {
	b.hub.Broadcast(wsEvent{Kind: "render:transform", Payload: transformFrame{Translate: translate}})
}

func (b *broadcastHost) SetScrollbar(pos, size float64) {
	b.hub.Broadcast(wsEvent{Kind: "render:scrollbar", Payload: scrollbarFrame{ThumbPos: pos, ThumbSize: size}})
}

func (b *broadcastHost) RenderRange(start, end int, rows []viewport.Row) {
	b.hub.Broadcast(wsEvent{Kind: "render:range", Payload: renderFrame{Start: start, End: end, Rows: rows}})
}

// Server is the demo HTTP front-end over a collection and engine.
type Server struct {
	cfg    config.ServerConfig
	logger logging.Logger
	coll   *collection.Collection
	engine *viewport.Engine
	hub    *Hub

	httpServer *http.Server
	unsub      func()
}

// New wires a server over the given engine stack: websocket clients
// receive every bus event plus render frames, and their commands drive
// the engine.
func New(
	cfg config.ServerConfig,
	coll *collection.Collection,
	engine *viewport.Engine,
	bus *events.Bus,
	logger logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.WithComponent("server"),
		coll:   coll,
		engine: engine,
	}

	s.hub = NewHub(cfg.AllowedOrigins, s.handleCommand, logger)
	s.unsub = bus.SubscribeAll(func(e events.Event) {
		s.hub.Broadcast(wsEvent{Kind: string(e.Kind()), Payload: e})
	})
	engine.SetHost(&broadcastHost{hub: s.hub})

	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return s.Shutdown()
}

// Shutdown stops the websocket hub and drains the HTTP server.
func (s *Server) Shutdown() error {
	if s.unsub != nil {
		s.unsub()
	}
	s.hub.Shutdown()

	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/items", s.handleItems)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/structure", s.handleStructure)
	mux.HandleFunc("/ws", s.hub.HandleWebSocket)

	return mux
}

func (s *Server) handleCommand(data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.logger.Warn(context.Background(), err, "unparseable client command")

		return
	}

	switch cmd.Action {
	case "scroll":
		s.engine.UpdateViewport(cmd.Delta)
	case "scrollTo":
		alignment := types.Alignment(cmd.Alignment)
		if alignment == "" {
			alignment = types.AlignStart
		}
		if err := s.engine.ScrollToIndex(cmd.Index, alignment); err != nil {
			s.logger.Warn(context.Background(), err, "scrollTo rejected", "index", cmd.Index)
		}
	case "settle":
		s.engine.Settle()
	case "setStrategy":
		if err := s.coll.SetStrategy(types.Strategy(cmd.Strategy)); err != nil {
			s.logger.Warn(context.Background(), err, "strategy switch rejected", "strategy", cmd.Strategy)
		} else {
			s.engine.Refresh()
		}
	default:
		s.logger.Debug(context.Background(), "unknown client command", "action", cmd.Action)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleItems serves a synchronous range read:
// GET /api/items?offset=0&limit=20
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)

		return
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	result, err := s.coll.LoadRange(r.Context(), offset, limit)
	if err != nil {
		writeError(w, statusFor(err), err)

		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	count, known := s.coll.Length()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collection": s.coll.Stats(),
		"count":      count,
		"countKnown": known,
		"strategy":   s.coll.Strategy(),
		"offset":     s.engine.Offset(),
		"state":      s.engine.State().String(),
		"visible":    s.engine.VisibleRange(),
		"clients":    s.hub.ClientCount(),
	})
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	structure := s.coll.Structure()
	if structure == nil {
		writeError(w, http.StatusNotFound,
			fmt.Errorf("structure not analyzed yet: no data loaded"))

		return
	}

	writeJSON(w, http.StatusOK, structure)
}

// statusFor maps the engine error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case vlisterrors.IsTimeout(err):
		return http.StatusGatewayTimeout
	case vlisterrors.IsMalformedResponse(err):
		return http.StatusBadGateway
	case vlisterrors.IsConfigError(err):
		return http.StatusBadRequest
	case vlisterrors.IsAdapterError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be an integer, got %q", key, raw)
	}

	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
