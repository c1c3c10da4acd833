package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/meteotest/quadkeys/pkg/config"
	"github.com/meteotest/quadkeys/pkg/coord"
	"github.com/meteotest/quadkeys/pkg/coord/pack"
	"github.com/meteotest/quadkeys/pkg/quadkey"
)

type tileResponse struct {
	QuadKey string `json:"quadkey"`
	Z       uint   `json:"z"`
	X       uint   `json:"x"`
	Y       uint   `json:"y"`
	// ID is the zoom-tagged integer form of the tile, absent at zoom 32.
	ID *uint64 `json:"id,omitempty"`
}

type childrenResponse struct {
	Children []tileResponse `json:"children"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newTileResponse(key string, c coord.Coord) tileResponse {
	resp := tileResponse{QuadKey: key, Z: c.Z, X: c.X, Y: c.Y}
	if id, err := pack.ToU64Var(c); err == nil {
		resp.ID = &id
	}
	return resp
}

// Server exposes the quad key conversions over HTTP.
type Server struct {
	log     zerolog.Logger
	metrics *Metrics
	router  chi.Router
}

// New builds the router. Metrics are registered with reg and served from it
// on /metrics.
func New(log zerolog.Logger, reg *prometheus.Registry) *Server {
	s := &Server{
		log:     log,
		metrics: NewMetrics(reg),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/quadkey/{z}/{x}/{y}", s.handleFromTile)
		r.Get("/tile/", s.handleToTile)
		r.Get("/tile/{quadkey}", s.handleToTile)
		r.Get("/tile/{quadkey}/parent", s.handleParent)
		r.Get("/tile/{quadkey}/children", s.handleChildren)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleFromTile(w http.ResponseWriter, r *http.Request) {
	c, err := parseTilePath(r)
	if err == nil {
		var key string
		key, err = quadkey.FromCoord(c)
		if err == nil {
			s.metrics.observeConversion("from_tile", nil)
			writeJSON(w, http.StatusOK, newTileResponse(key, c))
			return
		}
	}
	s.metrics.observeConversion("from_tile", err)
	s.writeError(w, r, err)
}

func (s *Server) handleToTile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "quadkey")
	c, err := quadkey.ToTile(key)
	s.metrics.observeConversion("to_tile", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTileResponse(key, c))
}

func (s *Server) handleParent(w http.ResponseWriter, r *http.Request) {
	parent, err := quadkey.Parent(chi.URLParam(r, "quadkey"))
	var c coord.Coord
	if err == nil {
		c, err = quadkey.ToTile(parent)
	}
	s.metrics.observeConversion("parent", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTileResponse(parent, c))
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	keys, err := quadkey.Children(chi.URLParam(r, "quadkey"))
	s.metrics.observeConversion("children", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := childrenResponse{Children: make([]tileResponse, 0, len(keys))}
	for _, key := range keys {
		c, err := quadkey.ToTile(key)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.Children = append(resp.Children, newTileResponse(key, c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseTilePath(r *http.Request) (coord.Coord, error) {
	var vals [3]uint64
	for i, name := range []string{"z", "x", "y"} {
		v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
		if err != nil {
			return coord.Coord{}, fmt.Errorf("%w: %s: %s", quadkey.ErrInvalidCoordinate, name, err)
		}
		vals[i] = v
	}
	return coord.Coord{Z: uint(vals[0]), X: uint(vals[1]), Y: uint(vals[2])}, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, quadkey.ErrNoParent) {
		status = http.StatusNotFound
	}
	s.log.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("conversion failed")
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.observeHTTP(r.Method, route, status, elapsed.Seconds())
		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("http request")
	})
}

// Run serves h on cfg.Addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, cfg config.ServerConfig, log zerolog.Logger, h http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("http listen")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
