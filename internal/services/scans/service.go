package scans

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tapango/cargotrack/internal/broker/messages"
	"github.com/tapango/cargotrack/internal/models"
)

var ErrBarcodeRequired = errors.New("barcode is required")

type Repository interface {
	InsertScan(ctx context.Context, ev *models.ScanEvent) (*models.ScanEvent, error)
	GetBarcodeByNumber(ctx context.Context, number string) (*models.Barcode, error)
	UpdateBarcodeScanState(ctx context.Context, id, status string, scannedAt time.Time, location *string) (*models.Barcode, error)
	ResolveBarcodeNumbers(ctx context.Context, numbers []string) ([]*models.Barcode, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Service struct {
	repo     Repository
	producer Producer
	topic    string
}

func New(repo Repository, producer Producer, topic string) *Service {
	return &Service{repo: repo, producer: producer, topic: topic}
}

// Ingest пишет событие в лог безусловно и, если номер известен,
// обновляет проекцию штрихкода. Событие старее текущего
// last_scanned_at проекцию не трогает (офлайн-повтор при уже более
// свежем состоянии).
func (s *Service) Ingest(ctx context.Context, in models.ScanInput) (*models.ScanEvent, *models.Barcode, error) {
	number := strings.TrimSpace(in.Barcode)
	if number == "" {
		return nil, nil, ErrBarcodeRequired
	}

	scanType := in.ScanType
	if scanType == "" {
		scanType = models.ScanTypeScan
	}
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	bc, err := s.repo.GetBarcodeByNumber(ctx, number)
	if err != nil {
		return nil, nil, err
	}

	ev := &models.ScanEvent{
		BarcodeNumber: number,
		ScanType:      scanType,
		Location:      in.Location,
		ScannedBy:     in.OperatorID,
		OccurredAt:    occurredAt,
	}
	if bc != nil {
		id := bc.ID
		ev.BarcodeID = &id
	}

	created, err := s.repo.InsertScan(ctx, ev)
	if err != nil {
		return nil, nil, err
	}

	projected := bc
	if bc != nil && (bc.LastScannedAt == nil || !occurredAt.Before(*bc.LastScannedAt)) {
		updated, err := s.repo.UpdateBarcodeScanState(ctx, bc.ID, statusForScanType(scanType), occurredAt, in.Location)
		if err != nil {
			return nil, nil, err
		}
		if updated != nil {
			projected = updated
		}
		// updated == nil: конкурентный скан успел записать более свежее
		// состояние, проекция уже правильная.
	}

	s.publishRecorded(ctx, created, projected)

	return created, projected, nil
}

// Resolve переводит отсканированные строки в строки barcodes,
// позиция-в-позицию. Неизвестный номер - nil, не ошибка.
func (s *Service) Resolve(ctx context.Context, numbers []string) ([]*models.Barcode, error) {
	if len(numbers) == 0 {
		return []*models.Barcode{}, nil
	}

	rows, err := s.repo.ResolveBarcodeNumbers(ctx, numbers)
	if err != nil {
		return nil, err
	}

	byNumber := make(map[string]*models.Barcode, len(rows))
	for _, b := range rows {
		byNumber[b.BarcodeNumber] = b
	}

	out := make([]*models.Barcode, len(numbers))
	for i, n := range numbers {
		out[i] = byNumber[n]
	}
	return out, nil
}

// publishRecorded - fire-and-forget: неуспех публикации скан не
// откатывает и наружу не выходит, только лог.
func (s *Service) publishRecorded(ctx context.Context, ev *models.ScanEvent, bc *models.Barcode) {
	if s.producer == nil || s.topic == "" {
		return
	}

	msg := messages.ScanRecorded{
		ScanID:        ev.ID,
		BarcodeID:     ev.BarcodeID,
		BarcodeNumber: ev.BarcodeNumber,
		ScanType:      ev.ScanType,
		Location:      ev.Location,
		OccurredAt:    ev.OccurredAt,
		RecordedAt:    ev.CreatedAt,
	}
	if bc != nil {
		msg.BarcodeStatus = bc.Status
	}

	b, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("scan.recorded marshal failed", "scan_id", ev.ID, "err", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.producer.Publish(pubCtx, s.topic, []byte(ev.BarcodeNumber), b); err != nil {
		slog.Warn("scan.recorded publish failed", "scan_id", ev.ID, "barcode", ev.BarcodeNumber, "err", err)
	}
}

func statusForScanType(scanType string) string {
	switch scanType {
	case models.ScanTypeScannedForManifest:
		return models.BarcodeStatusScannedForManifest
	case models.ScanTypeDelivered:
		return models.BarcodeStatusDelivered
	default:
		return models.BarcodeStatusInTransit
	}
}
