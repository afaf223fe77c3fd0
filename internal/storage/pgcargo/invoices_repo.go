package pgcargo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/tapango/cargotrack/internal/models"
)

func (s *Storage) GetInvoiceByRef(ctx context.Context, ref string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.QueryRow(ctx, `
SELECT id, invoice_ref, customer_id, amount, status, invoice_date, due_date, created_at
FROM invoices
WHERE invoice_ref = $1
`, ref).Scan(
		&inv.ID, &inv.InvoiceRef, &inv.CustomerID,
		&inv.Amount, &inv.Status, &inv.InvoiceDate, &inv.DueDate,
		&inv.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select invoice by ref")
	}
	return &inv, nil
}

func (s *Storage) GetCustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.QueryRow(ctx, `
SELECT id, name, phone, email
FROM customers
WHERE id = $1
`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select customer")
	}
	return &c, nil
}

// ListShipmentsByInvoice собирает все отправления, выставленные в
// счёте, через позиции счёта.
func (s *Storage) ListShipmentsByInvoice(ctx context.Context, invoiceID string) ([]*models.Shipment, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+shipmentColumns+`
FROM shipments
WHERE id IN (SELECT shipment_id FROM invoice_items WHERE invoice_id = $1)
ORDER BY created_at ASC
`, invoiceID)
	if err != nil {
		return nil, errors.Wrap(err, "select shipments by invoice")
	}
	defer rows.Close()

	return collectShipments(rows)
}

// GetCustomerByBarcodeID идёт barcode -> shipment -> customer; nil если
// цепочка где-то обрывается.
func (s *Storage) GetCustomerByBarcodeID(ctx context.Context, barcodeID string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.QueryRow(ctx, `
SELECT c.id, c.name, c.phone, c.email
FROM customers c
JOIN shipments sh ON sh.customer_id = c.id
JOIN barcodes b ON b.shipment_id = sh.id
WHERE b.id = $1
`, barcodeID).Scan(&c.ID, &c.Name, &c.Phone, &c.Email)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select customer by barcode")
	}
	return &c, nil
}
