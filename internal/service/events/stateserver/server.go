package stateserver

import (
	"ImageChat/internal/config"
	"ImageChat/internal/service/conversation"
	"ImageChat/internal/service/events"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Ensure interface compliance
var _ events.EventServer = (*StateServer)(nil)

const (
	clientBuffer  = 8
	writeWait     = 10 * time.Second
	maxPromptBody = 16 * 1024
)

// Submitter принимает промпт; реализуется оркестратором.
type Submitter interface {
	SubmitPrompt(raw string) bool
}

// StateServer отдаёт состояние переписки веб-клиенту: GET /state (JSON),
// GET /ws (снимки по WebSocket) и POST /prompt.
type StateServer struct {
	cfg       config.StateServerConfig
	store     *conversation.Store
	submitter Submitter
	srv       *http.Server
	logger    *zap.SugaredLogger
	running   atomic.Bool
	upgrader  websocket.Upgrader

	mu          sync.Mutex
	clients     map[*client]struct{}
	unsubscribe func()
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewStateServer(cfg config.StateServerConfig, store *conversation.Store, submitter Submitter, logger *zap.SugaredLogger) *StateServer {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1:3000"
	}
	s := &StateServer{
		cfg:       cfg,
		store:     store,
		submitter: submitter,
		logger:    logger,
		clients:   map[*client]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// сервер слушает локальный адрес, веб-клиент может быть открыт с любого origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.srv = &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.unsubscribe = store.Subscribe(s.broadcast)
	return s
}

// Handler возвращает маршруты сервера.
func (s *StateServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/prompt", s.handlePrompt)
	return mux
}

func (s *StateServer) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	go func() {
		s.logger.Infow("StateServer listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("StateServer stopped with error", "error", err)
		} else {
			s.logger.Infow("StateServer stopped")
		}
	}()

	// Watch for context cancellation to stop the server
	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

func (s *StateServer) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.unsubscribe()
	s.closeClients()

	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("state-server shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

func (s *StateServer) Addr() string { return s.cfg.BindAddr }

func (s *StateServer) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed; use GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(s.store.Snapshot()))
}

func (s *StateServer) handlePrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed; use POST", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPromptBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}
	var req promptRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, promptResponse{Reason: "empty prompt"})
		return
	}

	if !s.submitter.SubmitPrompt(req.Prompt) {
		writeJSON(w, http.StatusConflict, promptResponse{Reason: "request already pending"})
		return
	}
	s.logger.Infow("Prompt from state server accepted", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, promptResponse{Accepted: true})
}

func (s *StateServer) authorized(r *http.Request) bool {
	if s.cfg.AuthToken == "" {
		return true
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) == 1
}

func (s *StateServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	// первый кадр — текущее состояние; снимок берётся под mu, чтобы не
	// разминуться с рассылкой
	s.mu.Lock()
	initial, err := json.Marshal(newStateView(s.store.Snapshot()))
	if err != nil {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.send <- initial
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Infow("WebSocket client connected", "remote", r.RemoteAddr)

	go s.writeLoop(c)
	s.readLoop(c)
}

// readLoop нужен, чтобы получать close/ping от клиента.
func (s *StateServer) readLoop(c *client) {
	defer s.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *StateServer) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.drop(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// broadcast — колбэк Store: рассылает снимок всем клиентам; медленный клиент отключается.
func (s *StateServer) broadcast(snap conversation.Snapshot) {
	msg, err := json.Marshal(newStateView(snap))
	if err != nil {
		s.logger.Errorw("Failed to encode state", "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.logger.Warnw("WebSocket client too slow, dropping")
			delete(s.clients, c)
			close(c.send)
		}
	}
}

func (s *StateServer) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *StateServer) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
