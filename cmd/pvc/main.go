package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"plexconverter/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			if kind := services.Kind(err); kind != "" && kind != "storage" {
				fmt.Fprintf(os.Stderr, "%s: %v\n", kind, err)
			} else {
				fmt.Fprintln(os.Stderr, err)
			}
		}
		os.Exit(1)
	}
}
