package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"petsync/internal/api"
	"petsync/internal/daemon"
	"petsync/internal/logging"
	"petsync/internal/queue"
)

// ServiceName is the RPC service name clients address.
const ServiceName = "PetSync"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		logger.Debug("socket chmod failed", logging.Error(err))
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.once.Do(func() {
		s.cancel()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.wg.Wait()
		if err := os.RemoveAll(s.path); err != nil {
			logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
				logging.String("socket", s.path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
				logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun petsync stop"))
		}
	})
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = s.daemon.Status(s.ctx).API()
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("daemon stop requested via IPC",
		logging.String(logging.FieldEventType, "daemon_stop_requested"))
	resp.Stopping = s.daemon.RequestShutdown()
	if !resp.Stopping {
		s.daemon.Stop()
	}
	return nil
}

func (s *service) Sync(_ SyncRequest, resp *SyncResponse) error {
	resp.Result = api.FromSyncResult(s.daemon.Sync(s.ctx))
	return nil
}

func (s *service) ActionList(req ActionListRequest, resp *ActionListResponse) error {
	statuses := make([]queue.Status, 0, len(req.Statuses))
	for _, value := range req.Statuses {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	actions, err := s.daemon.ListActions(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Actions = api.FromActions(actions)
	return nil
}

func (s *service) ActionEnqueue(req ActionEnqueueRequest, resp *ActionEnqueueResponse) error {
	action, err := s.daemon.Enqueue(s.ctx, req.Type, req.Payload)
	if err != nil {
		return err
	}
	resp.Action = api.FromAction(action)
	return nil
}

func (s *service) ActionRetry(req ActionRetryRequest, resp *ActionRetryResponse) error {
	outcome, err := s.daemon.Retry(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Result = api.FromRetryOutcome(outcome)
	return nil
}

func (s *service) ActionRetryAll(_ ActionRetryAllRequest, resp *ActionRetryAllResponse) error {
	summary, err := s.daemon.RetryAll(s.ctx)
	if err != nil {
		return err
	}
	resp.Result = api.FromRetrySummary(summary)
	return nil
}

func (s *service) ActionDismiss(req ActionDismissRequest, resp *ActionDismissResponse) error {
	if err := s.daemon.Dismiss(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Removed = 1
	return nil
}

func (s *service) ActionDismissAll(_ ActionDismissAllRequest, resp *ActionDismissAllResponse) error {
	removed, err := s.daemon.DismissAll(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) ActionRequeue(req ActionRequeueRequest, resp *ActionRequeueResponse) error {
	updated, err := s.daemon.Requeue(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Updated = updated
	return nil
}

func (s *service) QueueHealth(_ QueueHealthRequest, resp *QueueHealthResponse) error {
	health, err := s.daemon.QueueHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.Total = health.Total
	resp.Pending = health.Pending
	resp.InFlight = health.InFlight
	resp.Failed = health.Failed
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.SchemaVersion = health.SchemaVersion
	resp.TableExists = health.TableExists
	resp.MissingColumns = append([]string(nil), health.MissingColumns...)
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalActions = health.TotalActions
	resp.Error = health.Error
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	if err != nil {
		return err
	}
	resp.Sent = sent
	resp.Message = message
	return nil
}
