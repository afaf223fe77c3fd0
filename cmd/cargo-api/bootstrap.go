package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tapango/cargotrack/config"
	"github.com/tapango/cargotrack/internal/api/cargoapi"
	"github.com/tapango/cargotrack/internal/broker/kafka"
	"github.com/tapango/cargotrack/internal/cache/rediscache"
	"github.com/tapango/cargotrack/internal/services/manifests"
	"github.com/tapango/cargotrack/internal/services/scans"
	"github.com/tapango/cargotrack/internal/services/tracking"
	"github.com/tapango/cargotrack/internal/storage/pgcargo"
)

type cargoAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   cargoAPIOpts

	server  *cargoapi.Server
	closeDB func()
}

func mustBootstrapCargoAPI() *cargoAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.CargoTrack.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	topic := cfg.Kafka.ScanRecordedTopicName
	if topic == "" {
		topic = "scan.recorded"
	}
	cacheTTL := time.Duration(cfg.CargoTrack.TrackCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	limiter := rediscache.NewRateLimiter(redisAddr, rateLimitBuckets(cfg)...)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)

	scanSvc := scans.New(st, producer, topic)
	manifestSvc := manifests.New(st)
	trackingSvc := tracking.New(st, rc, cacheTTL)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &cargoAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: cargoAPIOpts{
			httpAddr:    httpAddr,
			swaggerPath: swaggerPath,
		},
		server:  cargoapi.New(scanSvc, manifestSvc, trackingSvc, limiter),
		closeDB: st.Close,
	}
}

// rateLimitBuckets - публичные лимиты из конфига, нули заменяются
// дефолтами.
func rateLimitBuckets(cfg *config.Config) []rediscache.Bucket {
	trackingLimit := int64(cfg.CargoTrack.RateLimitTrackingPerMinute)
	if trackingLimit <= 0 {
		trackingLimit = 30
	}
	authLimit := int64(cfg.CargoTrack.RateLimitAuthPerMinute)
	if authLimit <= 0 {
		authLimit = 5
	}
	apiLimit := int64(cfg.CargoTrack.RateLimitAPIPerWindow)
	if apiLimit <= 0 {
		apiLimit = 10
	}
	apiWindow := time.Duration(cfg.CargoTrack.RateLimitAPIWindowSeconds) * time.Second
	if apiWindow <= 0 {
		apiWindow = 10 * time.Second
	}

	return []rediscache.Bucket{
		{Name: "tracking", Limit: trackingLimit, Window: time.Minute},
		{Name: "auth", Limit: authLimit, Window: time.Minute},
		{Name: "api", Limit: apiLimit, Window: apiWindow},
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgcargo.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgcargo.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *cargoAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *cargoAPIApp) Run() error {
	return runCargoAPI(a.ctx, a.opts, a.server)
}
