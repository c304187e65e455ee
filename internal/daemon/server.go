package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/specsync/internal/logger"
	"github.com/alucardeht/specsync/pkg/protocol"
)

var log = logger.ForComponent("daemon")

// Controller is the running watch session as seen from the control socket.
type Controller interface {
	Trigger(reason string) protocol.TriggerResult
	Status() protocol.StatusResult
}

// Server answers JSON-RPC requests on the control socket.
type Server struct {
	listener     *SocketListener
	controller   Controller
	connections  map[*jsonrpc2.Conn]bool
	connMu       sync.Mutex
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
	startTime    time.Time
}

func NewServer(socketPath string, controller Controller) *Server {
	return &Server{
		listener:    NewSocketListener(socketPath),
		controller:  controller,
		connections: make(map[*jsonrpc2.Conn]bool),
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		startTime:   time.Now(),
	}
}

func (s *Server) Start(ctx context.Context) error {
	if err := s.listener.Start(); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listener.Path(), err)
	}

	log.Info("control socket listening", "path", s.listener.Path())
	go s.acceptConnections(ctx)
	return nil
}

func (s *Server) acceptConnections(ctx context.Context) {
	defer close(s.done)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
			}
			log.Warn("accept failed", "error", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		stream := jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{})
		rpcConn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle))

		s.connMu.Lock()
		s.connections[rpcConn] = true
		s.connMu.Unlock()

		go func() {
			<-rpcConn.DisconnectNotify()
			s.connMu.Lock()
			delete(s.connections, rpcConn)
			s.connMu.Unlock()
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	log.Debug("control request", "method", req.Method)

	switch req.Method {
	case protocol.MethodTrigger:
		var params protocol.TriggerParams
		if req.Params != nil {
			if err := json.Unmarshal(*req.Params, &params); err != nil {
				return nil, &jsonrpc2.Error{Code: protocol.CodeInvalidParams, Message: err.Error()}
			}
		}
		if params.Reason == "" {
			params.Reason = "manual"
		}
		return s.controller.Trigger(params.Reason), nil

	case protocol.MethodStatus:
		status := s.controller.Status()
		status.PID = os.Getpid()
		return status, nil

	case protocol.MethodHealth:
		return protocol.HealthResponse{
			Status: "ok",
			Uptime: int64(time.Since(s.startTime).Seconds()),
		}, nil

	default:
		return nil, &jsonrpc2.Error{Code: protocol.CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}
}

// Shutdown stops accepting connections, closes open ones and removes the
// socket file.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		s.listener.Close()

		s.connMu.Lock()
		for conn := range s.connections {
			conn.Close()
		}
		s.connMu.Unlock()

		if s.listener.listener != nil {
			<-s.done
		}
	})
}

func (s *Server) SocketPath() string {
	return s.listener.Path()
}

func (s *Server) Uptime() time.Duration {
	return time.Since(s.startTime)
}
