// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL            = "/ext"
	DefaultMaxRequestBodySize = 1 << 20
)

// Config describes where the query endpoints listen and who may call them.
type Config struct {
	Host            string        `json:"host"`
	Port            uint16        `json:"port"`
	BaseURL         string        `json:"baseURL"`
	AllowedOrigins  []string      `json:"allowedOrigins"`
	AllowedHosts    []string      `json:"allowedHosts"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
	// MaxRequestBodySize caps each request body in bytes.
	MaxRequestBodySize int64 `json:"maxRequestBodySize"`

	ReadTimeout       time.Duration `json:"readTimeout"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout"`
	WriteTimeout      time.Duration `json:"writeTimeout"`
	IdleTimeout       time.Duration `json:"idleTimeout"`
}

func NewDefaultConfig() Config {
	return Config{
		Host:               "127.0.0.1",
		Port:               9650,
		BaseURL:            DefaultBaseURL,
		AllowedOrigins:     []string{wildcard},
		AllowedHosts:       []string{"localhost"},
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: DefaultMaxRequestBodySize,
		ReadTimeout:        30 * time.Second,
		ReadHeaderTimeout:  30 * time.Second,
		WriteTimeout:       30 * time.Second,
		IdleTimeout:        120 * time.Second,
	}
}

// Server serves the movevm query endpoints over HTTP.
type Server struct {
	cfg      Config
	log      logging.Logger
	router   *router
	srv      *http.Server
	listener net.Listener
}

// New binds the listener described by [cfg]. Port 0 picks a free port.
func New(cfg Config, log logging.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port))))
	if err != nil {
		return nil, err
	}

	router := newRouter()
	handler := gziphandler.GzipHandler(
		cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowCredentials: true,
		}).Handler(filterInvalidHosts(limitBody(router, cfg.MaxRequestBodySize), cfg.AllowedHosts)),
	)
	log.Info("API created",
		zap.Stringer("address", listener.Addr()),
		zap.Strings("allowedOrigins", cfg.AllowedOrigins),
		zap.Strings("allowedHosts", cfg.AllowedHosts),
	)
	return &Server{
		cfg:    cfg,
		log:    log,
		router: router,
		srv: &http.Server{
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		listener: listener,
	}, nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// URL returns the address clients use to reach [service].
func (s *Server) URL(service string) string {
	return fmt.Sprintf("http://%s%s/%s", s.listener.Addr(), s.cfg.BaseURL, service)
}

// AddRoute registers [handler] at BaseURL/[service][endpoint].
func (s *Server) AddRoute(handler http.Handler, service, endpoint string) error {
	base := fmt.Sprintf("%s/%s", s.cfg.BaseURL, service)
	s.log.Info("adding route",
		zap.String("url", base),
		zap.String("endpoint", endpoint),
	)
	return s.router.AddRouter(base, endpoint, handler)
}

// Serve handles requests until [ctx] is cancelled or the listener fails.
// Cancellation is a clean shutdown and returns nil.
func (s *Server) Serve(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- s.srv.Serve(s.listener)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down API", zap.Stringer("address", s.listener.Addr()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	err := s.srv.Shutdown(shutdownCtx)
	cancel()
	// The timeout leaves connections open; close them.
	_ = s.srv.Close()

	if serveErr := <-done; !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return err
}

// limitBody fails reads past [limit] bytes of a request body. A
// non-positive limit disables the cap.
func limitBody(handler http.Handler, limit int64) http.Handler {
	if limit <= 0 {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		handler.ServeHTTP(w, r)
	})
}
