package main

import (
	"os"

	"github.com/harunnryd/halo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
