package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/specsync/pkg/protocol"
)

const DefaultCallTimeout = 30 * time.Second

// Client talks to a running watcher over its control socket.
type Client struct {
	conn *jsonrpc2.Conn
}

type noopHandler struct{}

func (noopHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {}

func Dial(ctx context.Context, socketPath string) (*Client, error) {
	conn, err := NewSocketConnector(socketPath).Connect(ctx)
	if err != nil {
		return nil, err
	}

	stream := jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{})
	return &Client{
		conn: jsonrpc2.NewConn(context.Background(), stream, noopHandler{}),
	}, nil
}

func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCallTimeout)
		defer cancel()
	}

	if err := c.conn.Call(ctx, method, params, result); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (c *Client) Trigger(ctx context.Context, reason string) (protocol.TriggerResult, error) {
	var result protocol.TriggerResult
	err := c.call(ctx, protocol.MethodTrigger, protocol.TriggerParams{Reason: reason}, &result)
	return result, err
}

func (c *Client) Status(ctx context.Context) (protocol.StatusResult, error) {
	var result protocol.StatusResult
	err := c.call(ctx, protocol.MethodStatus, nil, &result)
	return result, err
}

func (c *Client) Health(ctx context.Context) (protocol.HealthResponse, error) {
	var result protocol.HealthResponse
	err := c.call(ctx, protocol.MethodHealth, nil, &result)
	return result, err
}

func (c *Client) Close() error {
	return c.conn.Close()
}
