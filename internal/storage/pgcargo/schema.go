package pgcargo

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  phone TEXT NULL,
  email TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS shipments (
  id TEXT PRIMARY KEY,
  shipment_ref TEXT NOT NULL,
  customer_id TEXT NULL REFERENCES customers(id),
  origin TEXT NULL,
  destination TEXT NULL,
  weight DOUBLE PRECISION NULL,
  status TEXT NULL,
  progress INT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (shipment_ref)
)`,
		`
CREATE TABLE IF NOT EXISTS invoices (
  id TEXT PRIMARY KEY,
  invoice_ref TEXT NOT NULL,
  customer_id TEXT NULL REFERENCES customers(id),
  amount DOUBLE PRECISION NULL,
  status TEXT NULL,
  invoice_date TIMESTAMPTZ NULL,
  due_date TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (invoice_ref)
)`,
		`
CREATE TABLE IF NOT EXISTS invoice_items (
  id TEXT PRIMARY KEY,
  invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
  shipment_id TEXT NOT NULL REFERENCES shipments(id)
)`,
		`
CREATE TABLE IF NOT EXISTS barcodes (
  id TEXT PRIMARY KEY,
  barcode_number TEXT NOT NULL,
  shipment_id TEXT NULL REFERENCES shipments(id),
  status TEXT NOT NULL DEFAULT 'pending',
  last_scanned_at TIMESTAMPTZ NULL,
  last_scanned_location TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (barcode_number)
)`,
		`CREATE INDEX IF NOT EXISTS idx_barcodes_shipment_id ON barcodes(shipment_id)`,
		// Лог сканов append-only. barcode_id NULL для неизвестных номеров:
		// событие всё равно пишем (audit), Barcode не создаём.
		`
CREATE TABLE IF NOT EXISTS package_scans (
  id TEXT PRIMARY KEY,
  barcode_id TEXT NULL REFERENCES barcodes(id),
  barcode_number TEXT NOT NULL,
  scan_type TEXT NOT NULL DEFAULT 'scan',
  location TEXT NULL,
  scanned_by TEXT NULL,
  manifest_id TEXT NULL,
  occurred_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_package_scans_barcode_id_occurred_at ON package_scans(barcode_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_package_scans_barcode_number ON package_scans(barcode_number)`,
		`
CREATE TABLE IF NOT EXISTS manifests (
  id TEXT PRIMARY KEY,
  manifest_ref TEXT NOT NULL,
  origin_hub TEXT NOT NULL,
  destination TEXT NOT NULL,
  airline_code TEXT NOT NULL,
  manifest_date TIMESTAMPTZ NOT NULL,
  total_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
  total_pieces INT NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'scheduled',
  created_by TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (manifest_ref)
)`,
		`
CREATE TABLE IF NOT EXISTS manifest_items (
  manifest_id TEXT NOT NULL REFERENCES manifests(id) ON DELETE CASCADE,
  shipment_id TEXT NULL REFERENCES shipments(id),
  barcode_id TEXT NOT NULL REFERENCES barcodes(id),
  weight DOUBLE PRECISION NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_manifest_items_manifest_id ON manifest_items(manifest_id)`,
		`
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  scan_id TEXT NOT NULL,
  channel TEXT NOT NULL,
  recipient TEXT NOT NULL,
  status TEXT NOT NULL,
  error TEXT NULL,
  attempted_at TIMESTAMPTZ NOT NULL
)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
