package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

type TransportKind string

const (
	KindConnectionRefused TransportKind = "connection_refused"
	KindHostNotFound      TransportKind = "host_not_found"
	KindTimeout           TransportKind = "timeout"
)

// TransportError means the service could not be reached at all.
type TransportError struct {
	Kind    TransportKind
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case KindConnectionRefused:
		return fmt.Sprintf("connection refused by %s: is the service running?", e.URL)
	case KindHostNotFound:
		return fmt.Sprintf("host not found for %s: check that the host is reachable", e.URL)
	case KindTimeout:
		return fmt.Sprintf("no response from %s within %v", e.URL, e.Timeout)
	default:
		return fmt.Sprintf("transport error for %s: %v", e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FetchError covers every other failed fetch: a non-2xx status, an
// unreadable or invalid body, or a request that was cancelled.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("GET %s returned %s: %s", e.URL, e.Status, e.Body)
		}
		return fmt.Sprintf("GET %s returned %s", e.URL, e.Status)
	}
	return fmt.Sprintf("GET %s failed: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func classify(err error, url string, timeout time.Duration) error {
	var dnsErr *net.DNSError

	switch {
	case isConnRefused(err):
		return &TransportError{Kind: KindConnectionRefused, URL: url, Err: err}
	case errors.As(err, &dnsErr) && !dnsErr.IsTimeout:
		return &TransportError{Kind: KindHostNotFound, URL: url, Err: err}
	case isTimeout(err):
		return &TransportError{Kind: KindTimeout, URL: url, Timeout: timeout, Err: err}
	default:
		return &FetchError{URL: url, Err: err}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
