package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// ErrNotRunning is returned by SocketConnector when nothing listens on the
// control socket.
var ErrNotRunning = errors.New("no watcher is running")

const DefaultDialTimeout = 2 * time.Second

type SocketListener struct {
	path     string
	listener net.Listener
}

func NewSocketListener(socketPath string) *SocketListener {
	return &SocketListener{
		path: socketPath,
	}
}

// Start removes a leftover socket file before listening. Callers hold the
// instance lock, so the file cannot belong to a live watcher.
func (sl *SocketListener) Start() error {
	dir := filepath.Dir(sl.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	if err := os.Remove(sl.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}

	listener, err := net.Listen("unix", sl.path)
	if err != nil {
		return err
	}

	sl.listener = listener
	return os.Chmod(sl.path, 0700)
}

func (sl *SocketListener) Accept() (net.Conn, error) {
	if sl.listener == nil {
		return nil, fmt.Errorf("listener not started")
	}
	return sl.listener.Accept()
}

func (sl *SocketListener) Close() error {
	if sl.listener == nil {
		return nil
	}
	err := sl.listener.Close()
	os.Remove(sl.path)
	return err
}

func (sl *SocketListener) Path() string {
	return sl.path
}

type SocketConnector struct {
	path    string
	timeout time.Duration
}

func NewSocketConnector(socketPath string) *SocketConnector {
	return &SocketConnector{
		path:    socketPath,
		timeout: DefaultDialTimeout,
	}
}

func (sc *SocketConnector) Connect(ctx context.Context) (net.Conn, error) {
	if _, err := os.Stat(sc.path); os.IsNotExist(err) {
		return nil, ErrNotRunning
	}

	d := net.Dialer{Timeout: sc.timeout}
	conn, err := d.DialContext(ctx, "unix", sc.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	return conn, nil
}
