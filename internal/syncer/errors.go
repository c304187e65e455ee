package syncer

import (
	"errors"
	"fmt"

	"github.com/alucardeht/specsync/internal/document"
	"github.com/alucardeht/specsync/internal/fetch"
)

// Kind is the classification logged and recorded for a failed sync.
type Kind string

const (
	KindNone             Kind = ""
	KindTransport        Kind = "transport"
	KindFetch            Kind = "fetch"
	KindRegionNotFound   Kind = "region_not_found"
	KindUnbalancedRegion Kind = "unbalanced_region"
	KindRead             Kind = "read"
	KindWrite            Kind = "write"
	KindUnknown          Kind = "unknown"
)

type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var (
		transportErr *fetch.TransportError
		fetchErr     *fetch.FetchError
		writeErr     *WriteError
		readErr      *ReadError
	)

	switch {
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.As(err, &fetchErr):
		return KindFetch
	case errors.Is(err, document.ErrRegionNotFound):
		return KindRegionNotFound
	case errors.Is(err, document.ErrUnbalancedRegion):
		return KindUnbalancedRegion
	case errors.As(err, &writeErr):
		return KindWrite
	case errors.As(err, &readErr):
		return KindRead
	default:
		return KindUnknown
	}
}
