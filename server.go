package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"osumap/dotosu"
)

const (
	MAX_BODY_BYTES = 16 << 20

	INTERNAL_ERROR_JSON = "{\"Status\":500,\"Body\":{\"ErrorDescription\":\"Internal server error\"}}"
)

type Response struct {
	Status int `json:"Status"`
	Body   any `json:"Body,omitempty"`
}

type ErrorResponse struct {
	ErrorDescription string `json:"ErrorDescription"`
}

type FormatResponse struct {
	Text   string
	Cached bool
}

// Server is the HTTP face of the decoder. store and cache are optional.
type Server struct {
	cfg   *Config
	log   *zap.SugaredLogger
	store *Store
	cache FormatCache
}

func NewServer(cfg *Config, log *zap.SugaredLogger, store *Store, cache FormatCache) *Server {
	return &Server{cfg: cfg, log: log, store: store, cache: cache}
}

func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Post("/decode", s.handleDecode)
	r.Post("/format", s.handleFormat)
	r.Get("/beatmaps/{id}", s.handleBeatmap)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeResponse(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(Response{Status: status, Body: body})
	if err != nil {
		writeInternalError(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, desc string) {
	writeResponse(w, status, ErrorResponse{ErrorDescription: desc})
}

func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = fmt.Fprintln(w, INTERNAL_ERROR_JSON)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, http.StatusOK, "ok")
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MAX_BODY_BYTES))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return nil, false
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty body")
		return nil, false
	}
	return body, true
}

// decode maps fatal decode errors to 422.
func (s *Server) decode(w http.ResponseWriter, body []byte) (*dotosu.Beatmap, int, bool) {
	skipped := 0
	b, err := dotosu.DecodeBytes(body, decodeOptions(s.cfg, s.log, &skipped)...)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, 0, false
	}
	return b, skipped, true
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	b, skipped, ok := s.decode(w, body)
	if !ok {
		return
	}
	writeResponse(w, http.StatusOK, Summarize(b, skipped))
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	key := cacheKey(body)

	if s.cache != nil {
		text, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warnw("cache get", "key", key, zap.Error(err))
		} else if hit {
			writeResponse(w, http.StatusOK, FormatResponse{Text: text, Cached: true})
			return
		}
	}

	b, _, ok := s.decode(w, body)
	if !ok {
		return
	}
	text, err := dotosu.EncodeToString(b)
	if err != nil {
		s.log.Errorw("encode", zap.Error(err))
		writeInternalError(w)
		return
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, text); err != nil {
			s.log.Warnw("cache set", "key", key, zap.Error(err))
		}
	}
	writeResponse(w, http.StatusOK, FormatResponse{Text: text})
}

func (s *Server) handleBeatmap(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no index configured")
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	ib, err := s.store.ByBeatmapID(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.log.Errorw("index lookup", "id", id, zap.Error(err))
		writeInternalError(w)
		return
	}
	writeResponse(w, http.StatusOK, ib)
}

// Serve runs the service until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Infof("Server is running on %s", s.cfg.ListenAddr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
