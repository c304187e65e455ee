package main

import (
	"errors"
	"os"

	"github.com/alucardeht/specsync/internal/console"
)

// errReported marks failures whose outcome line has already been printed.
var errReported = errors.New("reported")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			console.New(os.Stderr).Error(err)
		}
		os.Exit(1)
	}
}
