package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tapango/cargotrack/config"
	"github.com/tapango/cargotrack/internal/broker/kafka"
	"github.com/tapango/cargotrack/internal/broker/messages"
	"github.com/tapango/cargotrack/internal/integrations/notifier"
	"github.com/tapango/cargotrack/internal/integrations/notifier/fake"
	"github.com/tapango/cargotrack/internal/integrations/notifier/wagatehttp"
	"github.com/tapango/cargotrack/internal/services/notify"
	"github.com/tapango/cargotrack/internal/storage/pgcargo"
)

type consumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type workerFactories struct {
	newStorage  func(cfg *config.Config) (repo notify.Repository, closeFn func(), err error)
	newConsumer func(cfg *config.Config) consumer
	newNotifier func(cfg *config.Config) notifier.Client
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (notify.Repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgcargo.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newConsumer: func(cfg *config.Config) consumer {
			topic := cfg.Kafka.ScanRecordedTopicName
			if topic == "" {
				topic = "scan.recorded"
			}
			group := cfg.CargoTrack.KafkaConsumerGroup
			if group == "" {
				group = "notify-worker"
			}
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewConsumer(brokers, topic, group)
		},
		newNotifier: func(cfg *config.Config) notifier.Client {
			// Без настроенного шлюза уведомления уходят в локальный fake.
			if cfg.CargoTrack.WhatsAppGatewayBaseURL == "" {
				return fake.New()
			}
			timeout := time.Duration(cfg.CargoTrack.NotifyTimeoutSeconds) * time.Second
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			return wagatehttp.New(
				cfg.CargoTrack.WhatsAppGatewayBaseURL,
				cfg.CargoTrack.WhatsAppGatewayAPIKey,
				cfg.CargoTrack.WhatsAppSender,
				timeout,
			)
		},
	}
}

func RunNotifyWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	timeout := time.Duration(cfg.CargoTrack.NotifyTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	svc := notify.New(repo, f.newNotifier(cfg), timeout)
	cons := f.newConsumer(cfg)

	slog.Info("notify worker started")
	return cons.Consume(ctx, func(_key, value []byte) error {
		var m messages.ScanRecorded
		if err := json.Unmarshal(value, &m); err != nil {
			// Кривое сообщение дропаем: повтор его не починит.
			slog.Warn("skipping malformed scan.recorded message", "err", err)
			return nil
		}
		return svc.HandleScanRecorded(ctx, m)
	})
}
