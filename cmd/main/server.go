package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

// Server serves a built target directory for local preview.
type Server struct {
	logger *slog.Logger
	root   string
	mux    *http.ServeMux
}

func NewServer(logger *slog.Logger, root string) *Server {
	server := &Server{
		logger: logger,
		root:   root,
		mux:    http.NewServeMux(),
	}
	server.mux.Handle("/", http.FileServer(http.Dir(root)))
	return server
}

// Handler returns the server's handler with request logging and preview headers applied.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.setPreviewHeaders(rec)
		s.mux.ServeHTTP(rec, r)
		s.logger.Info("Served request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote_addr", getClientIP(r),
			"duration", time.Since(start))
	})
}

// setPreviewHeaders keeps browsers from caching pages that the next build replaces.
func (s *Server) setPreviewHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func getClientIP(r *http.Request) string {

	// The X-Real-Ip header contains the forwarded IP in some cases (like from nginx)
	realIP := r.Header.Get("X-Real-Ip")
	if realIP != "" {
		return realIP
	}

	// The first entry of X-Forwarded-For is the original client.
	forwardedFor := r.Header.Get("X-Forwarded-For")
	if forwardedFor != "" {
		ips := strings.Split(forwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Builds once, then serves the target directory until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, logger, err := a.setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				config.Serve.Addr = addr
			}

			result, err := a.build(cmd.Context(), config, logger)
			if err != nil {
				a.printf("[red][bold]BUILD FAILED[reset] %s\n", config.Build.SourceDir)
				return err
			}
			a.printf("[green][bold]BUILD SUCCESS[reset] %d rendered, %d copied\n", result.Rendered, result.Copied)

			return serve(cmd.Context(), logger, config.Serve.Addr, NewServer(logger, config.Build.TargetDir))
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", DefaultServeConfig().Addr, "address to listen on")
	return cmd
}

// serve runs server on addr until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, logger *slog.Logger, addr string, server *Server) error {
	httpServer := &http.Server{Addr: addr, Handler: server.Handler()}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting preview server", "address", httpServer.Addr, "root", server.root)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return eris.Wrapf(err, "preview server on %s failed", addr)
	case <-ctx.Done():
	}

	logger.Info("Stopping preview server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Preview server shutdown failed", "error", err)
		return eris.Wrap(err, "preview server shutdown failed")
	}
	logger.Info("HTTP server stopped.")
	return nil
}
