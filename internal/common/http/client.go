package http

import (
	"net"
	"net/http"
	"time"
)

// Client is the REST transport shared by the platform session.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// HTTPClient returns the configured *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Timeout is the per-request timeout of the REST transport.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}
