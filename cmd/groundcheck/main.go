package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/groundcheck/internal/cli"
	"github.com/ppiankov/groundcheck/internal/pipeline"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, pipeline.ErrBlocked) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
