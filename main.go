package main

import (
	"os"

	"github.com/taskwise-ai/taskwise/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
