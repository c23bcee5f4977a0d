package ipc

import (
	"encoding/json"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the daemon process to exit.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.call("Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sync runs a full sync pass and waits for it to finish.
func (c *Client) Sync() (*SyncResponse, error) {
	var resp SyncResponse
	if err := c.call("Sync", SyncRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActionList lists actions filtered by status.
func (c *Client) ActionList(statuses []string) (*ActionListResponse, error) {
	var resp ActionListResponse
	if err := c.call("ActionList", ActionListRequest{Statuses: statuses}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActionEnqueue queues a new action.
func (c *Client) ActionEnqueue(actionType string, payload json.RawMessage) (*ActionEnqueueResponse, error) {
	var resp ActionEnqueueResponse
	req := ActionEnqueueRequest{Type: actionType, Payload: payload}
	if err := c.call("ActionEnqueue", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActionRetry retries one failed action.
func (c *Client) ActionRetry(id string) (*ActionRetryResponse, error) {
	var resp ActionRetryResponse
	if err := c.call("ActionRetry", ActionRetryRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActionRetryAll retries every eligible failed action.
func (c *Client) ActionRetryAll() (*ActionRetryAllResponse, error) {
	var resp ActionRetryAllResponse
	if err := c.call("ActionRetryAll", ActionRetryAllRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActionDismiss removes one failed action.
func (c *Client) ActionDismiss(id string) (*ActionDismissResponse, error) {
	var resp ActionDismissResponse
	if err := c.call("ActionDismiss", ActionDismissRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActionDismissAll removes every failed action.
func (c *Client) ActionDismissAll() (*ActionDismissAllResponse, error) {
	var resp ActionDismissAllResponse
	if err := c.call("ActionDismissAll", ActionDismissAllRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActionRequeue moves failed actions back to pending.
func (c *Client) ActionRequeue(ids []string) (*ActionRequeueResponse, error) {
	var resp ActionRequeueResponse
	if err := c.call("ActionRequeue", ActionRequeueRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueHealth returns aggregate queue counts.
func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	var resp QueueHealthResponse
	if err := c.call("QueueHealth", QueueHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth returns database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.call("DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification sends a test notification through the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
