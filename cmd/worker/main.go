package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"leadsync/internal/app/bootstrap"
)

// Worker process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring.
// 3) Listen for lead changes and trigger DB to sheet syncs.
func main() {
	log.Println("leadsync worker starting")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildWorker(ctx)
	if err != nil {
		log.Fatalf("bootstrap worker failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("worker shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Printf("leadsync worker stopped with error: %v", err)
		return
	}
	log.Println("leadsync worker stopped")
}
