package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tapango/cargotrack/config"
	"github.com/tapango/cargotrack/internal/scanqueue"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	queuePath := cfg.Agent.QueuePath
	if queuePath == "" {
		queuePath = "scan-queue.json"
	}
	baseURL := cfg.Agent.APIBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	probeTimeout := time.Duration(cfg.Agent.ProbeTimeoutSeconds) * time.Second
	if probeTimeout <= 0 {
		probeTimeout = 3 * time.Second
	}

	q, err := scanqueue.Open(queuePath)
	if err != nil {
		panic(err)
	}

	client := scanqueue.NewAPIClient(baseURL, probeTimeout)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runScanAgent(ctx, agentOptsFromConfig(cfg), q, client, os.Stdin); err != nil && err != context.Canceled {
		panic(err)
	}
}
