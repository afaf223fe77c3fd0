package pgcargo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/tapango/cargotrack/internal/models"
)

const shipmentColumns = `id, shipment_ref, customer_id, origin, destination, weight, status, progress, created_at, updated_at`

func scanShipment(row pgx.Row) (*models.Shipment, error) {
	var sh models.Shipment
	if err := row.Scan(
		&sh.ID, &sh.ShipmentRef, &sh.CustomerID,
		&sh.Origin, &sh.Destination, &sh.Weight,
		&sh.Status, &sh.Progress,
		&sh.CreatedAt, &sh.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &sh, nil
}

func (s *Storage) GetShipmentByRef(ctx context.Context, ref string) (*models.Shipment, error) {
	row := s.db.QueryRow(ctx, `
SELECT `+shipmentColumns+`
FROM shipments
WHERE shipment_ref = $1
`, ref)
	sh, err := scanShipment(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select shipment by ref")
	}
	return sh, nil
}

func (s *Storage) GetShipmentByID(ctx context.Context, id string) (*models.Shipment, error) {
	row := s.db.QueryRow(ctx, `
SELECT `+shipmentColumns+`
FROM shipments
WHERE id = $1
`, id)
	sh, err := scanShipment(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select shipment by id")
	}
	return sh, nil
}

func (s *Storage) GetShipmentsByIDs(ctx context.Context, ids []string) ([]*models.Shipment, error) {
	if len(ids) == 0 {
		return []*models.Shipment{}, nil
	}

	rows, err := s.db.Query(ctx, `
SELECT `+shipmentColumns+`
FROM shipments
WHERE id = ANY($1)
`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select shipments by ids")
	}
	defer rows.Close()

	return collectShipments(rows)
}

func collectShipments(rows pgx.Rows) ([]*models.Shipment, error) {
	var out []*models.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan shipment")
		}
		out = append(out, sh)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
