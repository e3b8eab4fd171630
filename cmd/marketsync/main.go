package main

import (
	"os"

	"github.com/marketsync/marketsync/cmd/marketsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
