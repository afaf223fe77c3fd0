package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tapango/cargotrack/config"
	"github.com/tapango/cargotrack/internal/broker/messages"
	"github.com/tapango/cargotrack/internal/integrations/notifier"
	"github.com/tapango/cargotrack/internal/integrations/notifier/fake"
	"github.com/tapango/cargotrack/internal/integrations/notifier/wagatehttp"
	"github.com/tapango/cargotrack/internal/models"
	"github.com/tapango/cargotrack/internal/services/notify"
)

type fakeRepo struct {
	customer *models.Customer
	recorded []*models.NotificationAttempt
}

func (r *fakeRepo) GetCustomerByBarcodeID(ctx context.Context, barcodeID string) (*models.Customer, error) {
	return r.customer, nil
}

func (r *fakeRepo) RecordNotification(ctx context.Context, n *models.NotificationAttempt) error {
	r.recorded = append(r.recorded, n)
	return nil
}

// scriptedConsumer прогоняет подготовленные values через handler и
// завершает Consume как при отмене контекста.
type scriptedConsumer struct {
	values [][]byte
}

func (c *scriptedConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	for _, v := range c.values {
		if err := handler(nil, v); err != nil {
			return err
		}
	}
	return context.Canceled
}

func TestDefaultWorkerFactories_SelectNotifier(t *testing.T) {
	f := defaultWorkerFactories()

	cfgGateway := &config.Config{
		CargoTrack: config.CargoTrackConfig{
			WhatsAppGatewayBaseURL: "http://localhost:9000",
			WhatsAppGatewayAPIKey:  "k",
			WhatsAppSender:         "cargotrack",
		},
	}
	c1 := f.newNotifier(cfgGateway)
	_, ok := c1.(*wagatehttp.Client)
	require.True(t, ok)

	c2 := f.newNotifier(&config.Config{})
	_, ok = c2.(*fake.FakeClient)
	require.True(t, ok)
}

func TestRunNotifyWorker_SendsAndRecords(t *testing.T) {
	phone := "+971500000001"
	repo := &fakeRepo{customer: &models.Customer{ID: "cust-1", Name: "Acme", Phone: &phone}}
	client := fake.New()

	barcodeID := "bc-1"
	loc := "DXB Hub"
	msg := messages.ScanRecorded{
		ScanID:        "scan-1",
		BarcodeID:     &barcodeID,
		BarcodeNumber: "BC-001",
		ScanType:      "scan",
		Location:      &loc,
		OccurredAt:    time.Now().UTC(),
	}
	value, err := json.Marshal(msg)
	require.NoError(t, err)

	f := workerFactories{
		newStorage: func(cfg *config.Config) (notify.Repository, func(), error) {
			return repo, nil, nil
		},
		newConsumer: func(cfg *config.Config) consumer {
			return &scriptedConsumer{values: [][]byte{value, []byte("{not json")}}
		},
		newNotifier: func(cfg *config.Config) notifier.Client {
			return client
		},
	}

	err = RunNotifyWorker(context.Background(), &config.Config{}, f)
	require.ErrorIs(t, err, context.Canceled)

	// валидное сообщение отправлено и зафиксировано, кривое - пропущено
	sent := client.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, phone, sent[0].To)
	require.Contains(t, sent[0].Text, "BC-001")
	require.Contains(t, sent[0].Text, "DXB Hub")

	require.Len(t, repo.recorded, 1)
	require.Equal(t, models.NotificationStatusSent, repo.recorded[0].Status)
}

func TestRunNotifyWorker_StorageErrorPropagates(t *testing.T) {
	f := defaultWorkerFactories()
	f.newStorage = func(cfg *config.Config) (notify.Repository, func(), error) {
		return nil, nil, context.DeadlineExceeded
	}

	err := RunNotifyWorker(context.Background(), &config.Config{}, f)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
