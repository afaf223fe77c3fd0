package scanqueue

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrRejected - постоянный отказ (4xx): повтор не починит такой скан,
// из очереди он выбрасывается, чтобы не зациклить flush навсегда.
var ErrRejected = errors.New("scan rejected")

// PendingScan - скан, который не удалось доставить синхронно.
// Живёт в локальном файле до успешной доставки, молча не пропадает.
type PendingScan struct {
	ID         string     `json:"id"`
	Barcode    string     `json:"barcode"`
	ScanType   string     `json:"scanType"`
	Location   *string    `json:"location,omitempty"`
	OperatorID *string    `json:"operatorId,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
	Attempts   int        `json:"attempts"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
}

type Sender interface {
	Deliver(ctx context.Context, scan PendingScan) error
}

// Queue - durable FIFO одной клиентской сессии. Файл перечитывается
// при старте, так что сканы переживают перезапуск агента.
type Queue struct {
	mu    sync.Mutex
	path  string
	items []PendingScan
}

func Open(path string) (*Queue, error) {
	q := &Queue{path: path}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return q, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read queue file")
	}

	if err := json.Unmarshal(b, &q.items); err != nil {
		// повреждённый файл не должен блокировать сканирование
		slog.Warn("scan queue file corrupted, starting empty", "path", path, "err", err)
		q.items = nil
	}
	return q, nil
}

// Enqueue всегда успешен локально и сразу возвращает управление:
// оператор продолжает сканировать независимо от сети.
func (q *Queue) Enqueue(item PendingScan) (PendingScan, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.OccurredAt.IsZero() {
		item.OccurredAt = time.Now().UTC()
	}
	item.EnqueuedAt = time.Now().UTC()

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return item, q.save()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Flush доставляет с головы в порядке FIFO. Транзиентная ошибка
// оставляет элемент на месте и прекращает этот проход: элементы позади
// не обгоняют голову. Следующий триггер начнёт снова с головы.
func (q *Queue) Flush(ctx context.Context, send Sender) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delivered := 0
	for len(q.items) > 0 {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}

		head := q.items[0]
		err := send.Deliver(ctx, head)
		switch {
		case err == nil:
			q.items = q.items[1:]
			delivered++
		case errors.Is(err, ErrRejected):
			slog.Warn("queued scan rejected, dropping", "id", head.ID, "barcode", head.Barcode, "err", err)
			q.items = q.items[1:]
		default:
			q.items[0].Attempts++
			if saveErr := q.save(); saveErr != nil {
				slog.Warn("scan queue save failed", "err", saveErr)
			}
			return delivered, err
		}

		if saveErr := q.save(); saveErr != nil {
			slog.Warn("scan queue save failed", "err", saveErr)
		}
	}
	return delivered, nil
}

func (q *Queue) save() error {
	b, err := json.Marshal(q.items)
	if err != nil {
		return errors.Wrap(err, "marshal queue")
	}
	if err := os.WriteFile(q.path, b, 0o600); err != nil {
		return errors.Wrap(err, "write queue file")
	}
	return nil
}
