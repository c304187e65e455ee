//go:build !windows

package fetch

import (
	"errors"
	"syscall"
)

var errConnRefused error = syscall.ECONNREFUSED

func isConnRefused(err error) bool {
	return errors.Is(err, errConnRefused)
}
