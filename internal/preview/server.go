// Package preview serves the host document and the API document embedded in
// it, so a synced copy can be checked in a browser without the live service.
package preview

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/alucardeht/specsync/internal/document"
	"github.com/alucardeht/specsync/internal/logger"
)

var log = logger.ForComponent("preview")

type Config struct {
	Addr     string
	HostFile string
	Marker   string
}

type Server struct {
	cfg        Config
	locator    *document.Locator
	router     chi.Router
	httpServer *http.Server
}

func New(cfg Config) *Server {
	s := &Server{
		cfg:     cfg,
		locator: document.NewLocator(cfg.Marker),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Swagger editors on other origins may load /api-docs.json directly.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", s.handleHost)
	r.Get("/api-docs.json", s.handleAPIDocs)

	return r
}

func (s *Server) Router() chi.Router { return s.router }

func (s *Server) readHost() (document.HostText, error) {
	data, err := os.ReadFile(s.cfg.HostFile)
	if err != nil {
		return document.HostText{}, err
	}
	return document.DecodeHost(data)
}

func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	host, err := s.readHost()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(host.Text))
}

func (s *Server) handleAPIDocs(w http.ResponseWriter, r *http.Request) {
	host, err := s.readHost()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	doc, _, err := s.locator.Extract(host.Text)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, document.ErrRegionNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}

	body, err := doc.Render("  ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("ETag", `"`+doc.Hash()+`"`)
	w.Write([]byte(body))
}

func writeError(w http.ResponseWriter, status int, err error) {
	log.Warn("preview request failed", "status", status, "error", err)
	http.Error(w, err.Error(), status)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Serve listens on cfg.Addr until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("preview server listening", "addr", ln.Addr().String(), "host", s.cfg.HostFile)
		errc <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
