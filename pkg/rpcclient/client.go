// Package rpcclient calls a node's JSON-RPC endpoint.
package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/rocketscienceinc/movechain/pkg/jsonrpc"
)

type Client struct {
	url  string
	http *fasthttp.Client

	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

// New - baseURL is the node's HTTP address, e.g. http://localhost:9090.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		url:            strings.TrimRight(baseURL, "/") + "/rpc",
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
		defaultTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call - invokes method and decodes the result into out, which may be nil.
// A JSON-RPC error is returned as *jsonrpc.Error.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	raw, err := c.CallRaw(ctx, method, params)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	if err = json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}

	return nil
}

func (c *Client) CallRaw(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id, err := json.Marshal(uuid.NewString())
	if err != nil {
		return nil, err
	}

	request := jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: id, Method: method}
	if params != nil {
		if request.Params, err = json.Marshal(params); err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.url)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err = c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return nil, fmt.Errorf("rpc endpoint error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
	}

	var response jsonrpc.Response
	if err = json.Unmarshal(resp.Body(), &response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if response.Error != nil {
		return nil, response.Error
	}

	return response.Result, nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return time.Now().Add(c.defaultTimeout)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
