package pgcargo

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tapango/cargotrack/internal/models"
)

func (s *Storage) RecordNotification(ctx context.Context, n *models.NotificationAttempt) error {
	id := n.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO notifications (id, scan_id, channel, recipient, status, error, attempted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, id, n.ScanID, n.Channel, n.Recipient, n.Status, n.Error, n.AttemptedAt.UTC())
	return errors.Wrap(err, "insert notification")
}
