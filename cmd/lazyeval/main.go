package main

import (
	"os"

	"github.com/cwbudde/go-lazy/cmd/lazyeval/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
