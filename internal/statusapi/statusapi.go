// Package statusapi serves a small read-only json api describing what the
// daemon last saw.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"gradewatch/internal/checker"
	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/grades"
	"gradewatch/internal/snapshotstore"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	report_status_snapshot = "status.snapshot"
	report_status_write    = "status.write"
	report_status_serve    = "status.serve"
)

// Cycles exposes the result of the latest check cycle.
type Cycles interface {
	LastResult() (checker.Result, bool)
}

type Server struct {
	cycles Cycles
	store  snapshotstore.Store
	tel    telemetry.API
}

func New(cycles Cycles, store snapshotstore.Store, tel telemetry.API) Server {
	assert.NotNil(cycles)
	assert.NotNil(store)
	assert.NotNil(tel)

	return Server{
		cycles: cycles,
		store:  store,
		tel:    telemetry.NewScopedAPI("statusapi", tel),
	}
}

func (s Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Second * 10))
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/snapshot", s.handleSnapshot)
	r.Get("/cycles/last", s.handleLastCycle)
	return r
}

func (s Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.tel.ReportDebug(
			"status request",
			middleware.GetReqID(r.Context()),
			r.Method,
			r.URL.Path,
			ww.Status(),
			time.Since(start).String(),
		)
	})
}

func (s Server) writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		s.tel.ReportWarning(report_status_write, err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type healthBody struct {
	Status          string `json:"status"`
	LastCycleFailed bool   `json:"last_cycle_failed"`
}

func (s Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := healthBody{Status: "ok"}
	if last, ok := s.cycles.LastResult(); ok {
		body.LastCycleFailed = last.Failed()
	}
	s.writeJson(w, http.StatusOK, body)
}

type snapshotBody struct {
	Records grades.Snapshot `json:"records"`
}

func (s Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, found, err := s.store.Load(r.Context())
	if err != nil {
		s.tel.ReportBroken(report_status_snapshot, err)
		s.writeJson(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	if !found {
		s.writeJson(w, http.StatusNotFound, errorBody{Error: "no snapshot has been saved yet"})
		return
	}
	if snapshot == nil {
		snapshot = grades.Snapshot{}
	}
	s.writeJson(w, http.StatusOK, snapshotBody{Records: snapshot})
}

type cycleBody struct {
	checker.Result
	Error string `json:"error,omitempty"`
}

func (s Server) handleLastCycle(w http.ResponseWriter, r *http.Request) {
	last, ok := s.cycles.LastResult()
	if !ok {
		s.writeJson(w, http.StatusNotFound, errorBody{Error: "no cycle has finished yet"})
		return
	}
	body := cycleBody{Result: last}
	if last.Err != nil {
		body.Error = last.Err.Error()
	}
	s.writeJson(w, http.StatusOK, body)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

func (s Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: time.Second * 5,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			s.tel.ReportWarning(report_status_serve, err)
		}
	}()

	s.tel.ReportDebug("status api listening", listener.Addr().String())
	err := server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
