package pgcargo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/tapango/cargotrack/internal/models"
)

const barcodeColumns = `id, barcode_number, shipment_id, status, last_scanned_at, last_scanned_location, created_at`

func scanBarcode(row pgx.Row) (*models.Barcode, error) {
	var b models.Barcode
	if err := row.Scan(
		&b.ID, &b.BarcodeNumber, &b.ShipmentID,
		&b.Status, &b.LastScannedAt, &b.LastScannedLocation,
		&b.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBarcodeByNumber возвращает nil, nil если номера нет: промах - это
// не ошибка, вызывающий код сам решает, что с ним делать.
func (s *Storage) GetBarcodeByNumber(ctx context.Context, number string) (*models.Barcode, error) {
	row := s.db.QueryRow(ctx, `
SELECT `+barcodeColumns+`
FROM barcodes
WHERE barcode_number = $1
`, number)
	b, err := scanBarcode(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select barcode by number")
	}
	return b, nil
}

func (s *Storage) GetBarcodesByIDs(ctx context.Context, ids []string) ([]*models.Barcode, error) {
	if len(ids) == 0 {
		return []*models.Barcode{}, nil
	}

	rows, err := s.db.Query(ctx, `
SELECT `+barcodeColumns+`
FROM barcodes
WHERE id = ANY($1)
`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select barcodes by ids")
	}
	defer rows.Close()

	return collectBarcodes(rows)
}

func (s *Storage) ResolveBarcodeNumbers(ctx context.Context, numbers []string) ([]*models.Barcode, error) {
	if len(numbers) == 0 {
		return []*models.Barcode{}, nil
	}

	rows, err := s.db.Query(ctx, `
SELECT `+barcodeColumns+`
FROM barcodes
WHERE barcode_number = ANY($1)
`, numbers)
	if err != nil {
		return nil, errors.Wrap(err, "resolve barcode numbers")
	}
	defer rows.Close()

	return collectBarcodes(rows)
}

func (s *Storage) ListBarcodesByShipments(ctx context.Context, shipmentIDs []string) ([]*models.Barcode, error) {
	if len(shipmentIDs) == 0 {
		return []*models.Barcode{}, nil
	}

	rows, err := s.db.Query(ctx, `
SELECT `+barcodeColumns+`
FROM barcodes
WHERE shipment_id = ANY($1)
ORDER BY created_at ASC
`, shipmentIDs)
	if err != nil {
		return nil, errors.Wrap(err, "select barcodes by shipments")
	}
	defer rows.Close()

	return collectBarcodes(rows)
}

// UpdateBarcodeScanState обновляет материализованный статус только если
// событие не старее текущего last_scanned_at (защита от перезаписи
// свежего состояния отложенным офлайн-сканом). Возвращает nil, nil если
// условие не прошло.
func (s *Storage) UpdateBarcodeScanState(ctx context.Context, id, status string, scannedAt time.Time, location *string) (*models.Barcode, error) {
	row := s.db.QueryRow(ctx, `
UPDATE barcodes
SET status = $2, last_scanned_at = $3, last_scanned_location = $4
WHERE id = $1
  AND (last_scanned_at IS NULL OR last_scanned_at <= $3)
RETURNING `+barcodeColumns+`
`, id, status, scannedAt.UTC(), location)
	b, err := scanBarcode(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "update barcode scan state")
	}
	return b, nil
}

func collectBarcodes(rows pgx.Rows) ([]*models.Barcode, error) {
	var out []*models.Barcode
	for rows.Next() {
		b, err := scanBarcode(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan barcode")
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
