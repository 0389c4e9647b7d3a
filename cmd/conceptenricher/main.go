package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ConceptEnricher/internal/app"
	"ConceptEnricher/internal/usecase"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, usecase.ErrInvalidRange) || errors.Is(err, app.ErrCorpusNotFound) {
		return exitUsage
	}
	return exitFailure
}
