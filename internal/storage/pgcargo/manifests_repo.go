package pgcargo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/tapango/cargotrack/internal/models"
)

// CreateManifest вставляет манифест, позиции и проставляет manifest_id
// на сканах этих коробов одной транзакцией.
func (s *Storage) CreateManifest(ctx context.Context, m *models.Manifest, items []models.ManifestItem) (*models.Manifest, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := *m
	out.ID = uuid.NewString()

	row := tx.QueryRow(ctx, `
INSERT INTO manifests (
  id, manifest_ref, origin_hub, destination, airline_code,
  manifest_date, total_weight, total_pieces, status, created_by, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, now())
RETURNING created_at
`, out.ID, out.ManifestRef, out.OriginHub, out.Destination, out.AirlineCode,
		out.ManifestDate.UTC(), out.TotalWeight, out.TotalPieces, out.Status, out.CreatedBy)
	if err := row.Scan(&out.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "insert manifest")
	}

	barcodeIDs := make([]string, 0, len(items))
	for _, it := range items {
		_, err := tx.Exec(ctx, `
INSERT INTO manifest_items (manifest_id, shipment_id, barcode_id, weight)
VALUES ($1,$2,$3,$4)
`, out.ID, it.ShipmentID, it.BarcodeID, it.Weight)
		if err != nil {
			return nil, errors.Wrap(err, "insert manifest item")
		}
		barcodeIDs = append(barcodeIDs, it.BarcodeID)
	}

	if len(barcodeIDs) > 0 {
		_, err := tx.Exec(ctx, `
UPDATE package_scans SET manifest_id = $1 WHERE barcode_id = ANY($2)
`, out.ID, barcodeIDs)
		if err != nil {
			return nil, errors.Wrap(err, "assign scans to manifest")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return &out, nil
}
