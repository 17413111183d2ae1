package client

import (
	"context"

	"github.com/sisu-network/lib/log"
	"github.com/ybbus/jsonrpc/v3"
)

// A client that connects to a running relay server.
type Client interface {
	CheckHealth(ctx context.Context) error
	WatchStart(ctx context.Context) (string, error)
	WatchStop(ctx context.Context) (string, error)
	IsPolling(ctx context.Context) (bool, error)
	PollCount(ctx context.Context) (uint64, error)
	CollectedLogs(ctx context.Context) ([]string, error)
	TransferHistory(ctx context.Context, limit int) ([]string, error)
}

type DefaultClient struct {
	client jsonrpc.RPCClient
	url    string
}

func NewClient(url string) Client {
	return &DefaultClient{
		client: jsonrpc.NewClient(url),
		url:    url,
	}
}

func (c *DefaultClient) CheckHealth(ctx context.Context) error {
	res, err := c.client.Call(ctx, "relay_checkHealth")
	if err != nil {
		log.Error("Cannot reach relay server at ", c.url, ", err = ", err)
		return err
	}

	if res.Error != nil {
		return res.Error
	}

	return nil
}

func (c *DefaultClient) WatchStart(ctx context.Context) (string, error) {
	var msg string
	err := c.client.CallFor(ctx, &msg, "relay_watchStart")
	return msg, err
}

func (c *DefaultClient) WatchStop(ctx context.Context) (string, error) {
	var msg string
	err := c.client.CallFor(ctx, &msg, "relay_watchStop")
	return msg, err
}

func (c *DefaultClient) IsPolling(ctx context.Context) (bool, error) {
	var isPolling bool
	err := c.client.CallFor(ctx, &isPolling, "relay_isPolling")
	return isPolling, err
}

func (c *DefaultClient) PollCount(ctx context.Context) (uint64, error) {
	var count uint64
	err := c.client.CallFor(ctx, &count, "relay_pollCount")
	return count, err
}

func (c *DefaultClient) CollectedLogs(ctx context.Context) ([]string, error) {
	logs := make([]string, 0)
	err := c.client.CallFor(ctx, &logs, "relay_collectedLogs")
	return logs, err
}

func (c *DefaultClient) TransferHistory(ctx context.Context, limit int) ([]string, error) {
	history := make([]string, 0)
	err := c.client.CallFor(ctx, &history, "relay_transferHistory", limit)
	return history, err
}
