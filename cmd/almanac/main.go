package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/klefe6/almanac/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional, env vars override)")
	host := flag.String("host", "", "bind address (overrides config)")
	port := flag.Int("port", 0, "listen port (overrides config, default 8072)")
	noDebug := flag.Bool("no-debug", false, "disable debug tracing")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.New(ctx, app.Options{
		ConfigPath: *configPath,
		Host:       *host,
		Port:       *port,
		Debug:      !*noDebug,
	})
	cancel()
	if err != nil {
		slog.Error("failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("almanac listening on http://%s\n", application.Server.Addr)

	if err := application.Run(); err != nil {
		slog.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
