package preview

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Server serves the app directory with live reload.
type Server struct {
	baseDir string
	hub     *LiveReloadHub
	metrics http.Handler
	srv     *http.Server
}

// NewServer creates a server for baseDir. hub and metricsHandler may be nil
// to disable live reload and the metrics endpoint.
func NewServer(baseDir string, hub *LiveReloadHub, metricsHandler http.Handler) *Server {
	return &Server{baseDir: baseDir, hub: hub, metrics: metricsHandler}
}

// Handler returns the routing for the dev server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	var files http.Handler = http.FileServer(http.Dir(s.baseDir))
	if s.hub != nil {
		mux.Handle(eventsPath, s.hub)
		mux.HandleFunc(scriptPath, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			if _, err := w.Write([]byte(LiveReloadScript)); err != nil {
				slog.Error("failed to write livereload script", "error", err)
			}
		})
		files = InjectLiveReload(files)
	}
	if s.metrics != nil {
		mux.Handle(metricsPath, s.metrics)
	}
	mux.Handle("/", noCache(files))
	return mux
}

// noCache keeps browsers from holding on to assets that are rebuilt.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Serve accepts connections on ln until ctx is done, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// SSE connections are long-lived, so no read/write timeouts
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 300 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		err := s.srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	slog.Info("Dev server listening", logfields.Addr("http://"+ln.Addr().String()), logfields.Path(s.baseDir))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.hub != nil {
		// open SSE streams would otherwise hold Shutdown until its deadline
		s.hub.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}
	return nil
}
