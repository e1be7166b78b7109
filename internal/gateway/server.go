// Package gateway serves the liveness endpoint, a JSON status page and a
// websocket feed of finished translation requests.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/polyglot-bot/polyglot/internal/channels"
	"github.com/polyglot-bot/polyglot/internal/dispatch"
	"github.com/polyglot-bot/polyglot/pkg/protocol"
)

// HealthBody is the liveness response body.
const HealthBody = "Bot is running"

// StatusSource reports channel state for /status.
type StatusSource interface {
	Statuses() []channels.Status
}

// Options configures a Server.
type Options struct {
	Addr           string
	AllowedOrigins []string
	Version        string
	Languages      []string
	Logger         *slog.Logger
}

// Server represents the liveness HTTP server and event feed
type Server struct {
	opts         Options
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	clients      map[string]*Client
	clientsMutex sync.RWMutex
	httpServer   *http.Server
	listener     net.Listener
	startTime    time.Time

	statusMu sync.RWMutex
	status   StatusSource
}

var _ dispatch.Observer = (*Server)(nil)

// NewServer creates a new gateway server
func NewServer(opts Options) (*Server, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, fmt.Errorf("gateway address is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		opts:   opts,
		logger: logger.With("component", "gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     buildOriginChecker(opts.AllowedOrigins),
		},
		clients: make(map[string]*Client),
	}, nil
}

// SetStatusSource attaches channel status once the channels exist. The
// server starts before them and reports no channels until then.
func (s *Server) SetStatusSource(src StatusSource) {
	s.statusMu.Lock()
	s.status = src
	s.statusMu.Unlock()
}

// Handler returns the router. Requests are not access-logged.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHealth)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/events", s.handleWebSocket)
	return r
}

// Start binds the listener and serves in the background. Bind failures are
// returned; later serve errors are logged.
func (s *Server) Start(ctx context.Context) error {
	if s.startTime.IsZero() {
		s.startTime = time.Now()
	}

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ErrorLog:          log.New(os.Stderr, "HTTP: ", log.LstdFlags),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		s.logger.Info("health server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("health server error", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.opts.Addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Disconnect all clients
	for _, client := range s.snapshotClients() {
		client.Close()
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(HealthBody))
}

func buildOriginChecker(allowed []string) func(*http.Request) bool {
	configured := len(allowed) > 0
	allowedSet := make(map[string]struct{})
	for _, origin := range allowed {
		normalized, ok := normalizeOrigin(origin)
		if !ok {
			continue
		}
		allowedSet[normalized] = struct{}{}
	}

	return func(r *http.Request) bool {
		if !configured {
			return true
		}
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return false
		}
		normalized, ok := normalizeOrigin(origin)
		if !ok {
			return false
		}
		_, ok = allowedSet[normalized]
		return ok
	}
}

func normalizeOrigin(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return fmt.Sprintf("%s://%s", strings.ToLower(parsed.Scheme), strings.ToLower(parsed.Host)), true
}

// handleWebSocket registers an event feed client.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	clientID := r.URL.Query().Get("session")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	client := NewClient(clientID, conn, s)

	s.clientsMutex.Lock()
	if old, ok := s.clients[clientID]; ok {
		defer old.Close()
	}
	s.clients[clientID] = client
	s.clientsMutex.Unlock()

	s.logger.Info("feed client connected", "client", clientID)

	client.Enqueue(&protocol.Message{
		Kind:   protocol.MessageKindSystem,
		Action: protocol.ActionHello,
		Data: protocol.Hello{
			Version:   s.opts.Version,
			Languages: append([]string{}, s.opts.Languages...),
		},
	})

	go client.writePump()
	go client.Handle()
}

// Observe pushes a finished request to every feed client. Slow clients drop
// events instead of blocking the caller.
func (s *Server) Observe(ctx context.Context, ev dispatch.Event) error {
	msg := &protocol.Message{
		Kind:   protocol.MessageKindEvent,
		Action: protocol.ActionTranslation,
		Data:   TranslationEvent(ev),
	}
	for _, client := range s.snapshotClients() {
		client.Enqueue(msg)
	}
	return nil
}

// TranslationEvent converts a dispatch event to its wire form.
func TranslationEvent(ev dispatch.Event) protocol.TranslationEvent {
	return protocol.TranslationEvent{
		RequestID:    ev.RequestID,
		Time:         ev.Time.UTC(),
		DurationMS:   ev.Duration.Milliseconds(),
		GuildID:      ev.GuildID,
		ChannelID:    ev.ChannelID,
		AuthorID:     ev.AuthorID,
		Language:     ev.Language,
		State:        ev.State.String(),
		Delivery:     ev.Delivery.String(),
		ThreadID:     ev.ThreadID,
		Outcome:      ev.Outcome,
		Chunks:       ev.Chunks,
		SourceLength: ev.SourceLength,
		Detail:       ev.Detail,
	}
}

type statusResponse struct {
	Status        string          `json:"status"`
	Version       string          `json:"version,omitempty"`
	ActiveClients int             `json:"active_clients"`
	Uptime        string          `json:"uptime"`
	Languages     []string        `json:"languages,omitempty"`
	Channels      []channelStatus `json:"channels,omitempty"`
}

type channelStatus struct {
	Name         string `json:"name"`
	Running      bool   `json:"running"`
	LastError    string `json:"last_error"`
	LastActivity string `json:"last_activity"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	uptime := time.Duration(0)
	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime)
	}

	resp := statusResponse{
		Status:        "ok",
		Version:       s.opts.Version,
		ActiveClients: s.activeClients(),
		Uptime:        uptime.Truncate(time.Second).String(),
		Languages:     s.opts.Languages,
		Channels:      s.channelStatus(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) channelStatus() []channelStatus {
	s.statusMu.RLock()
	src := s.status
	s.statusMu.RUnlock()
	if src == nil {
		return nil
	}

	statuses := src.Statuses()
	out := make([]channelStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, channelStatus{
			Name:         st.Name,
			Running:      st.Running,
			LastError:    formatStatusTime(st.LastError),
			LastActivity: formatStatusTime(st.LastActivity),
		})
	}
	return out
}

func formatStatusTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func (s *Server) activeClients() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return len(s.clients)
}

func (s *Server) snapshotClients() []*Client {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()

	clients := make([]*Client, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, client)
	}
	return clients
}

func (s *Server) removeClient(c *Client) {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	if current, ok := s.clients[c.ID]; ok && current == c {
		delete(s.clients, c.ID)
	}
}
