package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/chazu/xrt/vm/dist"
)

// Client calls a remote RunService.
type Client struct {
	run      *connect.Client[RunRequest, RunResponse]
	describe *connect.Client[DescribeRequest, DescribeResponse]
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:4567".
func NewClient(httpClient connect.HTTPClient, baseURL string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	codec := connect.WithCodec(cborCodec{})
	return &Client{
		run:      connect.NewClient[RunRequest, RunResponse](httpClient, baseURL+RunProcedure, codec),
		describe: connect.NewClient[DescribeRequest, DescribeResponse](httpClient, baseURL+DescribeProcedure, codec),
	}
}

// Run runs img remotely. entry overrides the program's entry when set.
func (c *Client) Run(ctx context.Context, img *dist.Image, entry string) (*RunResponse, error) {
	resp, err := c.run.CallUnary(ctx, connect.NewRequest(&RunRequest{Image: img, Entry: entry}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Describe lists the classes img defines.
func (c *Client) Describe(ctx context.Context, img *dist.Image) (*DescribeResponse, error) {
	resp, err := c.describe.CallUnary(ctx, connect.NewRequest(&DescribeRequest{Image: img}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
