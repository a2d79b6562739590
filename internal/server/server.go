package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/muurk/hcat/internal/hcdevice"
	"github.com/muurk/hcat/internal/logging"
	"github.com/muurk/hcat/internal/uart"
)

// Config holds the bridge configuration
type Config struct {
	Listen   string // host:port, ":0" picks a free port
	Port     string // serial port path, reported by /api/device
	CertPath string // optional; with KeyPath enables TLS
	KeyPath  string
}

// Server exposes one module session over HTTP. Every request that touches
// the module holds mu for its whole duration.
type Server struct {
	config    Config
	tlsConfig *tls.Config

	mu      sync.Mutex
	session *hcdevice.Session

	hub      *Hub
	router   chi.Router
	listener net.Listener
	http     *http.Server
	wg       sync.WaitGroup
}

// listPorts is swapped out in tests.
var listPorts = uart.ListPorts

// New creates a bridge around a fresh session on link. The session's
// observer feeds the websocket hub.
func New(config Config, link uart.Link, mode uart.ModeControl, opts ...hcdevice.Option) (*Server, error) {
	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	hub := NewHub()
	opts = append(append([]hcdevice.Option{}, opts...), hcdevice.WithObserver(hub.Publish))

	s := &Server{
		config:    config,
		tlsConfig: tlsConfig,
		session:   hcdevice.NewSession(link, mode, opts...),
		hub:       hub,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/device", s.handleDevice)
		r.Post("/detect", s.handleDetect)
		r.Post("/echo", s.handleEcho)
		r.Get("/version", s.handleVersion)
		r.Get("/role", s.handleGetRole)
		r.Put("/role", s.handleSetRole)
		r.Put("/name", s.handleSetName)
		r.Put("/pin", s.handleSetPin)
		r.Put("/uart", s.handleSetUART)
		r.Get("/ports", s.handlePorts)
	})
	return r
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Listen binds the listener. Addr is valid afterwards.
func (s *Server) Listen() error {
	var (
		l   net.Listener
		err error
	)
	if s.tlsConfig != nil {
		l, err = tls.Listen("tcp", s.config.Listen, s.tlsConfig)
	} else {
		l, err = net.Listen("tcp", s.config.Listen)
	}
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	s.listener = l
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve handles requests until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	logging.Info("hcat bridge listening",
		zap.String("addr", s.listener.Addr().String()),
		zap.String("port", s.config.Port),
		zap.Bool("tls", s.tlsConfig != nil),
	)

	s.http = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // a Legacy full search is slow
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		errChan <- s.http.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops accepting requests, disconnects websocket clients and
// returns the module to data mode.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down bridge...")

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
			_ = s.http.Close()
		}
	}
	s.hub.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	s.mu.Lock()
	err := s.session.Close()
	s.mu.Unlock()

	logging.Sync()
	return err
}

// Detect runs a detection outside any request, e.g. at startup.
func (s *Server) Detect(ctx context.Context) (hcdevice.DeviceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Detect(ctx)
}

// GetActiveConnections returns the number of websocket clients
func (s *Server) GetActiveConnections() int {
	return s.hub.Len()
}
