//go:build windows

package fetch

import (
	"errors"
	"syscall"
)

// WSAECONNREFUSED; syscall.ECONNREFUSED is a synthetic value on windows
// and never matches a dial error.
const wsaeconnrefused syscall.Errno = 10061

var errConnRefused error = wsaeconnrefused

func isConnRefused(err error) bool {
	return errors.Is(err, errConnRefused) || errors.Is(err, syscall.ECONNREFUSED)
}
