package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Server receives bot platform updates on the webhook path and hands them
// to the command dispatcher.
type Server struct {
	config     ConfigProvider
	dispatcher UpdateDispatcher
	listen     string
	version    string
	debug      bool

	lock       sync.Mutex
	httpServer *http.Server
	addr       string
	router     *routegroup.Bundle
}

// UpdateDispatcher handles decoded bot platform updates
type UpdateDispatcher interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (webhookPath string, timeout time.Duration)
}

// New initializes a new server instance
func New(cfg ConfigProvider, dispatcher UpdateDispatcher, listen, version string, debug bool) *Server {
	s := &Server{
		config:     cfg,
		dispatcher: dispatcher,
		listen:     listen,
		version:    version,
		debug:      debug,
		router:     routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	_, timeout := s.config.GetServerConfig()
	log.Printf("[INFO] starting server on %s", s.listen)

	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listen, err)
	}

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         s.listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.addr = ln.Addr().String()
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// Addr returns the bound listener address, empty before Run
func (s *Server) Addr() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.addr
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("feedgram", "feedgram", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	webhookPath, _ := s.config.GetServerConfig()
	s.router.HandleFunc("POST "+webhookPath, s.webhookHandler)

	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
	})
}

// webhookHandler decodes a bot platform update and dispatches it
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		renderError(w, r, fmt.Errorf("invalid update payload"), http.StatusBadRequest)
		return
	}

	s.dispatcher.HandleUpdate(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}
	renderJSON(w, r, http.StatusOK, status)
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}
