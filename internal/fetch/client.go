package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/alucardeht/specsync/internal/document"
	"github.com/alucardeht/specsync/internal/logger"
)

var log = logger.ForComponent("fetch")

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxBodySize = 32 << 20
	maxErrorBody       = 512
)

type Options struct {
	URL         string
	Timeout     time.Duration
	MaxBodySize int64
	UserAgent   string
}

type Client struct {
	opts Options
	http *http.Client
}

func New(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("fetch url is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "specsync"
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	h2, err := http2.ConfigureTransports(transport)
	if err != nil {
		return nil, fmt.Errorf("configuring http2: %w", err)
	}
	// Idle HTTP/2 connections are health-checked between syncs in watch mode.
	h2.ReadIdleTimeout = 30 * time.Second
	h2.PingTimeout = 5 * time.Second

	return &Client{
		opts: opts,
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
	}, nil
}

func (c *Client) URL() string {
	return c.opts.URL
}

// Fetch issues GET <url> with Accept: application/json and parses the body
// as an API document.
func (c *Client) Fetch(ctx context.Context) (*document.APIDocument, error) {
	log.Info("fetching API document", "url", c.opts.URL)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.URL, nil)
	if err != nil {
		return nil, &FetchError{URL: c.opts.URL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(err, c.opts.URL, c.opts.Timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &FetchError{
			URL:        c.opts.URL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodySize+1))
	if err != nil {
		return nil, classify(err, c.opts.URL, c.opts.Timeout)
	}
	if int64(len(body)) > c.opts.MaxBodySize {
		return nil, &FetchError{URL: c.opts.URL, Err: fmt.Errorf("response body exceeds %d bytes", c.opts.MaxBodySize)}
	}

	doc, err := document.Parse(body)
	if err != nil {
		return nil, &FetchError{URL: c.opts.URL, Err: err}
	}

	log.Info("API document fetched", "bytes", doc.Size(), "duration", time.Since(start))
	return doc, nil
}
