package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/treasurehunt/game/engine"
	"github.com/wricardo/mcp-training/treasurehunt/game/service"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

// Service error codes reported alongside engine codes
const (
	CodeSessionNotFound engine.ErrorCode = "SESSION_NOT_FOUND"
	CodeLayoutNotFound  engine.ErrorCode = "LAYOUT_NOT_FOUND"
	CodeInvalidLayout   engine.ErrorCode = "INVALID_LAYOUT"
	CodeInputSuspended  engine.ErrorCode = "INPUT_SUSPENDED"
	CodeNoOpenSummary   engine.ErrorCode = "NO_OPEN_SUMMARY"
	CodeBadRequest      engine.ErrorCode = "BAD_REQUEST"
)

// StreamHandler attaches a WebSocket connection to a session
type StreamHandler interface {
	ServeWS(w http.ResponseWriter, r *http.Request, sessionID string)
}

// Server represents the REST API server
type Server struct {
	service service.GameService
	streams StreamHandler
	router  *mux.Router
}

// NewServer creates a new API server. streams may be nil, in which case
// /ws answers 503.
func NewServer(gameService service.GameService, streams StreamHandler) *Server {
	s := &Server{
		service: gameService,
		streams: streams,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(requestLogger)

	api := s.router.PathPrefix("/api").Subrouter()

	// Sessions
	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/transition", s.handleTransition).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/advance", s.handleAdvance).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/place", s.handlePlace).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/layout", s.handleApplyLayout).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/move", s.handleMove).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/bulk-move", s.handleBulkMove).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/dismiss", s.handleDismiss).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/results", s.handleGetResults).Methods(http.MethodGet)

	// Layouts
	api.HandleFunc("/layouts", s.handleListLayouts).Methods(http.MethodGet)
	api.HandleFunc("/layouts", s.handleCreateLayout).Methods(http.MethodPost)
	api.HandleFunc("/layouts/{name}", s.handleGetLayout).Methods(http.MethodGet)

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, CodeBadRequest, "no such endpoint: "+r.URL.Path)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// statusWriter captures HTTP status and bytes written
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Hijack lets the WebSocket upgrade take over the connection
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if w.status == 0 {
		w.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		entry := log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": sw.status,
			"bytes":  sw.bytes,
			"dur":    time.Since(start).Round(time.Millisecond),
		})
		if sw.status >= http.StatusInternalServerError {
			entry.Warn("http")
			return
		}
		entry.Debug("http")
	})
}

// Response helpers

type errorResponse struct {
	Error string           `json:"error"`
	Code  engine.ErrorCode `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code engine.ErrorCode, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondServiceError maps service and engine errors to HTTP statuses
func respondServiceError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}
	respondError(w, status, code, err.Error())
}

func classifyError(err error) (int, engine.ErrorCode) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, CodeSessionNotFound
	case errors.Is(err, service.ErrLayoutNotFound):
		return http.StatusNotFound, CodeLayoutNotFound
	case errors.Is(err, service.ErrInputSuspended):
		return http.StatusLocked, CodeInputSuspended
	case errors.Is(err, service.ErrNoOpenSummary):
		return http.StatusConflict, CodeNoOpenSummary
	case errors.Is(err, service.ErrInvalidLayout):
		return http.StatusBadRequest, CodeInvalidLayout
	}

	code := engine.Code(err)
	switch code {
	case engine.CodeOutOfBounds, engine.CodeInvalidInput:
		return http.StatusBadRequest, code
	case engine.CodeCellOccupied, engine.CodeHunterAlreadyPlaced,
		engine.CodeInvalidTransition, engine.CodeWrongMode:
		return http.StatusConflict, code
	case engine.CodeInvalidMove:
		return http.StatusUnprocessableEntity, code
	default:
		return http.StatusInternalServerError, engine.CodeUnknown
	}
}

// decodeBody decodes a JSON body. An empty body leaves v untouched when
// optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	if r.Body == nil {
		if optional {
			return true
		}
		respondError(w, http.StatusBadRequest, CodeBadRequest, "request body required")
		return false
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
	return false
}

// Session handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LayoutID string `json:"layout_id,omitempty"`
	}
	if !decodeBody(w, r, &req, true) {
		return
	}

	session, err := s.service.CreateSession(r.Context(), req.LayoutID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created" or "accessed"
	if sortBy != "created" {
		sortBy = "accessed"
	}
	order := query.Get("order")
	if order != "asc" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		ti, tj := sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < total {
		sessions = sessions[:l]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game operation handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Event string `json:"event"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}

	event, err := engine.ParseEvent(req.Event)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.service.Transition(r.Context(), mux.Vars(r)["id"], event)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Advance(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X       *int   `json:"x"`
		Y       *int   `json:"y"`
		Command string `json:"command"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}
	if req.X == nil || req.Y == nil {
		respondError(w, http.StatusBadRequest, engine.CodeInvalidInput, "x and y are required")
		return
	}

	command, err := engine.ParseCommand(req.Command)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.service.Place(r.Context(), mux.Vars(r)["id"], *req.X, *req.Y, command)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleApplyLayout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LayoutID string `json:"layout_id"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}

	result, err := s.service.ApplyLayout(r.Context(), mux.Vars(r)["id"], req.LayoutID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Direction string `json:"direction"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}

	direction, err := engine.ParseDirection(req.Direction)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.service.Move(r.Context(), sessionID, direction)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out := result.Outcome
	log.WithFields(log.Fields{
		"session":   sessionID,
		"direction": out.Direction,
		"from":      out.From.String(),
		"to":        out.To.String(),
		"blocked":   out.Blocked,
		"collected": out.Collected,
		"score":     result.GameState.Score,
		"rounds":    result.GameState.Rounds,
	}).Info("move")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleBulkMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Moves []string `json:"moves"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}

	result, err := s.service.BulkMove(r.Context(), sessionID, req.Moves)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.WithFields(log.Fields{
		"session":     sessionID,
		"executed":    result.MovesExecuted,
		"requested":   result.RequestedMoves,
		"stop":        result.StopReasonCode,
		"end":         result.EndPos.String(),
		"score_delta": result.ScoreDelta,
	}).Info("bulk move")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.DismissSummary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		opts.Page = p
	}
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 {
		opts.Limit = l
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetMoveHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.service.GetResults(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if results == nil {
		results = []engine.Summary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(results),
		"results": results,
	})
}

// Layout handlers

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	layouts, err := s.service.ListLayouts(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if layouts == nil {
		layouts = []*service.LayoutInfo{}
	}

	respondJSON(w, http.StatusOK, layouts)
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	layout, err := s.service.LoadLayout(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"layout_id": name,
		"layout":    layout,
		"stats":     layout.Stats(),
	})
}

func (s *Server) handleCreateLayout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LayoutID string `json:"layout_id,omitempty"`
		engine.Layout
	}
	if !decodeBody(w, r, &req, false) {
		return
	}

	id := req.LayoutID
	if id == "" {
		id = req.Name
	}
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, CodeInvalidLayout, "layout name is required")
		return
	}

	if err := s.service.SaveLayout(r.Context(), id, &req.Layout); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Layout saved successfully",
		"layout_id": id,
		"stats":     req.Layout.Stats(),
	})
}

// WebSocket handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "session parameter required")
		return
	}
	if s.streams == nil {
		respondError(w, http.StatusServiceUnavailable, engine.CodeUnknown, "websocket streaming disabled")
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	s.streams.ServeWS(w, r, sessionID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
