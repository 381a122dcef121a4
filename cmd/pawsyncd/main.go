// Command pawsyncd runs the PawSync reference backend.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pawsync/pawsync/internal/server/app"
	"github.com/pawsync/pawsync/internal/server/config"
)

func main() {
	configPath := flag.String("config", "config/pawsyncd.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}

	if err := application.Shutdown(context.Background()); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
