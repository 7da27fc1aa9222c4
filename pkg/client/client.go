package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/poweron/poweron/pkg/types"
)

// Client is a struct for communicating with the poweron helper
type Client struct {
	socketPath string
	httpClient *http.Client
}

// NewClient is a constructor for creating a new Client
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					conn, err := d.DialContext(ctx, "unix", socketPath)
					if err != nil {
						// A stale socket file with no listener behind it
						// means the same thing as no socket at all.
						if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
							return nil, ErrHelperNotRunning
						}
						if errors.Is(err, fs.ErrPermission) {
							return nil, ErrPermissionDenied
						}
						logrus.Errorf("failed to connect to unix socket: %v", err)
						return nil, err
					}
					return conn, err
				},
				DisableKeepAlives: true,
			},
		},
	}
}

// SocketPath returns the unix socket the client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// Send is a method for sending a request to the helper
func (c *Client) Send(ctx context.Context, method string, path string, data string) (string, error) {
	reqID := uuid.NewString()

	logrus.WithFields(logrus.Fields{
		"method":    method,
		"path":      path,
		"data":      data,
		"unix":      c.socketPath,
		"requestID": reqID,
	}).Debug("sending request")

	var body io.Reader
	if data != "" {
		body = strings.NewReader(data)
	}

	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return "", fmt.Errorf("unknown method: %s", method)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://unix"+path, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(types.RequestIDHeader, reqID)
	if data != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	respBody := string(b)

	logrus.WithFields(logrus.Fields{
		"code":      resp.StatusCode,
		"body":      respBody,
		"requestID": reqID,
	}).Debug("got response")

	if resp.StatusCode == http.StatusNotFound {
		return respBody, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBody, &StatusError{Code: resp.StatusCode, Body: respBody}
	}

	return respBody, nil
}

// Get is a method for sending a GET request to the helper
func (c *Client) Get(ctx context.Context, path string) (string, error) {
	return c.Send(ctx, http.MethodGet, path, "")
}

// Put is a method for sending a PUT request to the helper
func (c *Client) Put(ctx context.Context, path string, data string) (string, error) {
	return c.Send(ctx, http.MethodPut, path, data)
}

// Delete is a method for sending a DELETE request to the helper
func (c *Client) Delete(ctx context.Context, path string) (string, error) {
	return c.Send(ctx, http.MethodDelete, path, "")
}
