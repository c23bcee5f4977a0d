package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/mux"

	"petsync/internal/api"
	"petsync/internal/config"
	"petsync/internal/logging"
	"petsync/internal/queue"
	"petsync/internal/syncer"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	queueSvc *api.QueueService
	handler  http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:     bind,
		logger:   logger,
		daemon:   d,
		queueSvc: api.NewQueueService(d.store),
	}
	srv.handler = srv.routes(cfg.Paths.APIToken)
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	r := mux.NewRouter()
	r.Use(authMiddleware(token))

	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/actions", s.handleListActions).Methods(http.MethodGet)
	r.HandleFunc("/api/actions", s.handleEnqueue).Methods(http.MethodPost)
	r.HandleFunc("/api/actions/retry", s.handleRetryAll).Methods(http.MethodPost)
	r.HandleFunc("/api/actions/requeue", s.handleRequeue).Methods(http.MethodPost)
	r.HandleFunc("/api/actions/failed", s.handleDismissAll).Methods(http.MethodDelete)
	r.HandleFunc("/api/actions/{id}", s.handleGetAction).Methods(http.MethodGet)
	r.HandleFunc("/api/actions/{id}", s.handleDismiss).Methods(http.MethodDelete)
	r.HandleFunc("/api/actions/{id}/retry", s.handleRetry).Methods(http.MethodPost)
	r.HandleFunc("/api/sync", s.handleSync).Methods(http.MethodPost)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.log().Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	server := s.server
	listener := s.listener
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()).API())
}

func (s *apiServer) handleListActions(w http.ResponseWriter, r *http.Request) {
	statuses, err := parseStatusQuery(r.URL.Query()["status"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	actions, err := s.queueSvc.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if actions == nil {
		actions = []api.Action{}
	}
	s.writeJSON(w, http.StatusOK, api.ActionListResponse{Actions: actions})
}

func (s *apiServer) handleGetAction(w http.ResponseWriter, r *http.Request) {
	action, err := s.queueSvc.Describe(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if action == nil {
		s.writeError(w, http.StatusNotFound, "action not found")
		return
	}
	s.writeJSON(w, http.StatusOK, action)
}

func (s *apiServer) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req api.EnqueueRequest
	body := io.LimitReader(r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action, err := s.daemon.Enqueue(r.Context(), req.Type, req.Payload)
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromAction(action))
}

func (s *apiServer) handleSync(w http.ResponseWriter, r *http.Request) {
	result := s.daemon.Sync(r.Context())
	status := http.StatusOK
	if result.Skipped {
		status = http.StatusConflict
	}
	s.writeJSON(w, status, api.FromSyncResult(result))
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.daemon.Retry(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromRetryOutcome(outcome))
}

func (s *apiServer) handleRetryAll(w http.ResponseWriter, r *http.Request) {
	summary, err := s.daemon.RetryAll(r.Context())
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromRetrySummary(summary))
}

func (s *apiServer) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.Dismiss(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.DismissResult{Removed: 1})
}

func (s *apiServer) handleDismissAll(w http.ResponseWriter, r *http.Request) {
	removed, err := s.daemon.DismissAll(r.Context())
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.DismissResult{Removed: removed})
}

func (s *apiServer) handleRequeue(w http.ResponseWriter, r *http.Request) {
	var req api.RequeueRequest
	body := io.LimitReader(r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := s.daemon.Requeue(r.Context(), req.IDs)
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.RequeueResult{Updated: updated})
}

func parseStatusQuery(values []string) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			status, ok := queue.ParseStatus(trimmed)
			if !ok {
				return nil, fmt.Errorf("unknown status %q", trimmed)
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, syncer.ErrActionNotFound), errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, syncer.ErrSyncInProgress), errors.Is(err, queue.ErrQueueFull):
		return http.StatusConflict
	case errors.Is(err, queue.ErrInvalidActionType), errors.Is(err, queue.ErrInvalidPayload),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// API converts the status into its transport representation.
func (status Status) API() api.DaemonStatus {
	return api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		APIBind:      status.APIBind,
		Netlink:      status.Netlink,
		Sync:         api.FromSyncState(status.Sync),
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
