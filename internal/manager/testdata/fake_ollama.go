package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

// A stand-in for the backend executable. Behavior is driven by environment:
//
//	FAKE_OLLAMA_EXIT_CODE   exit immediately with this code after printing to stderr
//	FAKE_OLLAMA_IGNORE_TERM ignore SIGTERM (forces the kill path)
//
// Otherwise it blocks until SIGTERM/SIGINT and exits 0.
func main() {
	if v := os.Getenv("FAKE_OLLAMA_EXIT_CODE"); v != "" {
		code, _ := strconv.Atoi(v)
		fmt.Fprintf(os.Stderr, "fake backend failing with args %v\n", os.Args[1:])
		os.Exit(code)
	}
	sigCh := make(chan os.Signal, 1)
	if os.Getenv("FAKE_OLLAMA_IGNORE_TERM") == "1" {
		signal.Ignore(syscall.SIGTERM)
		for {
			time.Sleep(time.Hour)
		}
	}
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh
}
