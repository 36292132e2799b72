// Package main provides the csim command, a trace-driven cache simulator.
package main

import (
	"log"
	"os"

	"github.com/tebeka/atexit"
)

var logger = log.New(os.Stderr, "csim: ", 0)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Print(err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
