package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"claimflow/auth"
	"claimflow/db"
	"claimflow/dispute"
	"claimflow/notify"
	"claimflow/request"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connString := os.Getenv("DATABASE_URL")
	pool, err := db.NewPool(ctx, connString)
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	authService := auth.NewService(auth.NewRepository(pool), jwtSecret)
	requestRepo := request.NewRepository(pool)
	requestService := request.NewService(pool, requestRepo, request.NewEventLog(), request.NewOutbox())
	disputeService := dispute.NewService(pool, dispute.NewRepository(pool), request.NewOutbox())

	dispatcher := notify.NewDispatcher(pool, notify.LogSender{})
	slaWatcher := notify.NewSLAWatcher(requestRepo, notify.LogSender{})

	log.Printf("work request engine ready: auth=%t requests=%t disputes=%t",
		authService != nil, requestService != nil, disputeService != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return slaWatcher.Run(gctx) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("background workers: %v", err)
	}
}
