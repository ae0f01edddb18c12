package server

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"github.com/quillchat/api/internal/config"
)

type Server struct {
	httpServer     *http.Server
	addr           string
	tlsMode        string
	certFile       string
	keyFile        string
	certManager    *autocert.Manager
	redirectServer *http.Server
}

func New(cfg config.ServerConfig, handler http.Handler) *Server {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	s := &Server{
		addr:     addr,
		tlsMode:  cfg.TLS.Mode,
		certFile: cfg.TLS.CertFile,
		keyFile:  cfg.TLS.KeyFile,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}

	if cfg.TLS.Mode == "auto" {
		s.certManager = &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.TLS.Auto.Domain),
			Cache:      autocert.DirCache(cfg.TLS.Auto.CacheDir),
			Email:      cfg.TLS.Auto.Email,
		}
		s.httpServer.TLSConfig = &tls.Config{
			GetCertificate: s.certManager.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		}
		s.redirectServer = &http.Server{
			Addr:         ":80",
			Handler:      s.certManager.HTTPHandler(nil),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
	}

	return s
}

func (s *Server) Start() error {
	switch s.tlsMode {
	case "auto":
		slog.Info("starting HTTPS server", "addr", s.addr, "tls", "auto")
		go func() {
			if err := s.redirectServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("HTTP redirect server error", "error", err)
			}
		}()
		return s.httpServer.ListenAndServeTLS("", "")
	case "manual":
		slog.Info("starting HTTPS server", "addr", s.addr, "tls", "manual")
		return s.httpServer.ListenAndServeTLS(s.certFile, s.keyFile)
	default:
		slog.Info("starting server", "addr", s.addr)
		return s.httpServer.ListenAndServe()
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down server")
	if s.redirectServer != nil {
		if err := s.redirectServer.Shutdown(ctx); err != nil {
			slog.Error("HTTP redirect server shutdown error", "error", err)
		}
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string { return s.addr }
