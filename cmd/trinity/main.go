package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/psantana5/trinity/cmd/trinity/cmd"
	"github.com/psantana5/trinity/internal/supervisor"
)

func main() {
	if err := cmd.Execute(); err != nil {
		// Gate failures were already logged with their [GRID-LOCK] tag.
		var fatal *supervisor.FatalError
		if !errors.As(err, &fatal) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
