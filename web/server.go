package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"mmtips-service/config"
	"mmtips-service/logger"
	"mmtips-service/services"
	"mmtips-service/storage"
)

// PageLoader produces the data for one dashboard render.
type PageLoader interface {
	Load(ctx context.Context) (*services.Page, error)
}

// ErrorNotifier receives render failures.
type ErrorNotifier interface {
	NotifyError(component, message string) error
}

type Server struct {
	config     *config.Config
	loader     PageLoader
	wsHub      *Hub
	notifier   ErrorNotifier
	httpServer *http.Server
	upgrader   websocket.Upgrader
	started    time.Time
}

func NewServer(cfg *config.Config, loader PageLoader, hub *Hub, notifier ErrorNotifier) *Server {
	return &Server{
		config:   cfg,
		loader:   loader,
		wsHub:    hub,
		notifier: notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		started: time.Now(),
	}
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/", s.handleIndex).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	router.HandleFunc("/ws", s.handleWebSocket)

	static, _ := fs.Sub(staticFS, "static")
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(router)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("[Web] Server shutdown error: %v", err)
	}
}

// handleIndex recomputes the whole page on every request. Nothing is
// written until the page rendered completely.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := s.loader.Load(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	var buf bytes.Buffer
	if err := RenderPage(&buf, s.config.PageTitle, page); err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	logger.Errorf("[Web] Failed to render dashboard (%d): %v", status, err)
	if s.notifier != nil && status != http.StatusNotFound {
		if nerr := s.notifier.NotifyError("Dashboard", err.Error()); nerr != nil {
			logger.Errorf("[Web] Failed to send error notification: %v", nerr)
		}
	}
	http.Error(w, http.StatusText(status), status)
}

func statusFor(err error) int {
	var parseErr *services.ParseError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrAuth):
		return http.StatusBadGateway
	case errors.As(err, &parseErr):
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	var objErr *storage.ObjectError
	if errors.As(err, &objErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"time":    time.Now().Unix(),
		"uptime":  int64(time.Since(s.started).Seconds()),
		"clients": s.wsHub.ClientCount(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("[Web] WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 16),
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
