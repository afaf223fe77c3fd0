package pgcargo

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tapango/cargotrack/internal/models"
)

// InsertScan пишет событие в лог безусловно, даже для неизвестного
// номера (barcodeID == nil). Лог авторитетнее проекции.
func (s *Storage) InsertScan(ctx context.Context, ev *models.ScanEvent) (*models.ScanEvent, error) {
	out := *ev
	out.ID = uuid.NewString()

	row := s.db.QueryRow(ctx, `
INSERT INTO package_scans (
  id, barcode_id, barcode_number, scan_type, location, scanned_by, occurred_at, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7, now())
RETURNING created_at
`, out.ID, out.BarcodeID, out.BarcodeNumber, out.ScanType, out.Location, out.ScannedBy, out.OccurredAt.UTC())
	if err := row.Scan(&out.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "insert scan")
	}
	return &out, nil
}

func (s *Storage) ListScansByBarcodes(ctx context.Context, barcodeIDs []string) ([]*models.ScanEvent, error) {
	if len(barcodeIDs) == 0 {
		return []*models.ScanEvent{}, nil
	}

	rows, err := s.db.Query(ctx, `
SELECT id, barcode_id, barcode_number, scan_type, location, scanned_by, manifest_id, occurred_at, created_at
FROM package_scans
WHERE barcode_id = ANY($1)
ORDER BY occurred_at ASC
`, barcodeIDs)
	if err != nil {
		return nil, errors.Wrap(err, "select scans")
	}
	defer rows.Close()

	var out []*models.ScanEvent
	for rows.Next() {
		var e models.ScanEvent
		if err := rows.Scan(
			&e.ID, &e.BarcodeID, &e.BarcodeNumber, &e.ScanType,
			&e.Location, &e.ScannedBy, &e.ManifestID,
			&e.OccurredAt, &e.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan scan event")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
