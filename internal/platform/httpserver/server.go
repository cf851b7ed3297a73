package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	leadsync "leadsync/contexts/sales-ops/lead-sync"
	domainerrors "leadsync/contexts/sales-ops/lead-sync/domain/errors"
	leadhttp "leadsync/contexts/sales-ops/lead-sync/transport/http"
	_ "leadsync/internal/platform/httpserver/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	service string
	leads   leadsync.Module
}

func New(leads leadsync.Module, service string, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		service: service,
		leads:   leads,
	}
	s.registerRoutes()
	return s
}

// Run serves until ctx is cancelled, then lets in-flight requests finish.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down",
		"event", "http_server_shutdown",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /sync_postgres", s.handleSyncPostgres)
	s.mux.HandleFunc("POST /sync_gsheet", s.handleSyncGSheet)
	s.mux.HandleFunc("GET /leads", s.handleListLeads)
}

// handleSyncPostgres godoc
// @Summary      Sync the sheet into PostgreSQL
// @Description  Upserts changed sheet rows by lead_id and deletes leads missing from the sheet.
// @Tags         sync
// @Produce      json
// @Success      200  {object}  leadhttp.SyncResponse
// @Failure      500  {object}  leadhttp.ErrorResponse
// @Router       /sync_postgres [post]
func (s *Server) handleSyncPostgres(w http.ResponseWriter, r *http.Request) {
	resp, err := s.leads.Handler.SyncPostgresHandler(r.Context())
	if err != nil {
		s.writeSyncError(w, "Error syncing data", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSyncGSheet godoc
// @Summary      Sync PostgreSQL into the sheet
// @Description  Deletes sheet rows whose lead is gone and rewrites the range when leads are new or changed.
// @Tags         sync
// @Produce      json
// @Success      200  {object}  leadhttp.SyncResponse
// @Failure      500  {object}  leadhttp.ErrorResponse
// @Router       /sync_gsheet [post]
func (s *Server) handleSyncGSheet(w http.ResponseWriter, r *http.Request) {
	resp, err := s.leads.Handler.SyncGSheetHandler(r.Context())
	if err != nil {
		s.writeSyncError(w, "Error updating Google Sheets", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListLeads godoc
// @Summary      List leads
// @Tags         leads
// @Produce      json
// @Success      200  {object}  leadhttp.LeadsResponse
// @Failure      500  {object}  leadhttp.ErrorResponse
// @Router       /leads [get]
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	resp, err := s.leads.Handler.ListLeadsHandler(r.Context())
	if err != nil {
		s.writeSyncError(w, "Error fetching leads", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, leadhttp.HealthResponse{Status: "ok", Service: s.service})
}

// writeSyncError reports every failure as a single 500; the code names the
// error class and the detail carries the cause.
func (s *Server) writeSyncError(w http.ResponseWriter, prefix string, err error) {
	code := "internal_error"
	switch {
	case errors.Is(err, domainerrors.ErrValidation), errors.Is(err, domainerrors.ErrKeyColumnMissing):
		code = "validation_error"
	case errors.Is(err, domainerrors.ErrStoreRead):
		code = "store_read_error"
	case errors.Is(err, domainerrors.ErrStoreWrite):
		code = "store_write_error"
	case errors.Is(err, domainerrors.ErrNotificationChannel):
		code = "notification_channel_error"
	}
	s.logger.Error("request failed",
		"event", "http_request_failed",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"code", code,
		"error", err.Error(),
	)
	writeJSON(w, http.StatusInternalServerError, leadhttp.ErrorResponse{
		Code:   code,
		Detail: fmt.Sprintf("%s: %v", prefix, err),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
