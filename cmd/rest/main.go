package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ai-search-be/internal/bootstrap"
	"ai-search-be/internal/config"
	"ai-search-be/internal/server"
	"ai-search-be/internal/tracer"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(ctx, cfg, bootstrap.Overrides{})
	defer container.Close()

	// 3. Tracing
	shutdownTracer := tracer.InitTracer(ctx, container.Logger)
	defer shutdownTracer(context.Background())

	// 4. Start Background Services
	if err := container.SessionEvents.Consume(ctx); err != nil {
		container.Logger.Error("MAIN", "Session event consumer failed to start", map[string]interface{}{"error": err.Error()})
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)
	go func() {
		<-ctx.Done()
		container.Logger.Info("MAIN", "Shutting down", nil)
		_ = srv.Shutdown()
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		container.Logger.Error("MAIN", "Server stopped", map[string]interface{}{"error": err.Error()})
		return err
	}
	return nil
}
