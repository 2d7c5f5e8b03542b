package main

import (
	"fmt"
	"os"

	"github.com/NicabarNimble/submod/internal/logger"
)

func main() {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
