package main

import (
	"os"

	"github.com/recallmem/recall/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
