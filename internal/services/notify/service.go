package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tapango/cargotrack/internal/broker/messages"
	"github.com/tapango/cargotrack/internal/integrations/notifier"
	"github.com/tapango/cargotrack/internal/models"
)

type Repository interface {
	GetCustomerByBarcodeID(ctx context.Context, barcodeID string) (*models.Customer, error)
	RecordNotification(ctx context.Context, n *models.NotificationAttempt) error
}

// Service рассылает push по scan.recorded. Уведомления best-effort:
// неуспех фиксируется в notifications и глотается, consumer не падает
// и сообщение не перечитывается ради недоступного шлюза.
type Service struct {
	repo    Repository
	client  notifier.Client
	timeout time.Duration
}

func New(repo Repository, client notifier.Client, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{repo: repo, client: client, timeout: timeout}
}

func (s *Service) HandleScanRecorded(ctx context.Context, msg messages.ScanRecorded) error {
	if msg.BarcodeID == nil {
		// скан не привязан к коробу - уведомлять некого
		return nil
	}

	cust, err := s.repo.GetCustomerByBarcodeID(ctx, *msg.BarcodeID)
	if err != nil {
		return err
	}
	if cust == nil || cust.Phone == nil || *cust.Phone == "" {
		return nil
	}

	text := buildText(msg)

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	sendErr := s.client.Send(sendCtx, notifier.Message{To: *cust.Phone, Text: text})

	attempt := &models.NotificationAttempt{
		ScanID:      msg.ScanID,
		Channel:     "whatsapp",
		Recipient:   *cust.Phone,
		Status:      models.NotificationStatusSent,
		AttemptedAt: time.Now().UTC(),
	}
	if sendErr != nil {
		e := sendErr.Error()
		attempt.Status = models.NotificationStatusFailed
		attempt.Error = &e
		slog.Warn("scan notification failed", "scan_id", msg.ScanID, "recipient", *cust.Phone, "err", sendErr)
	}

	if err := s.repo.RecordNotification(ctx, attempt); err != nil {
		slog.Warn("record notification failed", "scan_id", msg.ScanID, "err", err)
	}
	return nil
}

func buildText(msg messages.ScanRecorded) string {
	loc := "the hub"
	if msg.Location != nil && *msg.Location != "" {
		loc = *msg.Location
	}
	return fmt.Sprintf("Package %s was scanned at %s on %s.",
		msg.BarcodeNumber, loc, msg.OccurredAt.Format("02 Jan 2006, 15:04"))
}
