package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	var (
		configPath    = flag.String("config", "./config/config.yaml", "path to the YAML config file")
		maxConcurrent = flag.Int("max-concurrent", 1024, "maximum in-flight HTTP requests (0 disables the limit)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *maxConcurrent); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
