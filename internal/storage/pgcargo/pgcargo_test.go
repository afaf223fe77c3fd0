package pgcargo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tapango/cargotrack/internal/models"
)

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "cargotrack_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/cargotrack_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestPGCargo_RepoFlow(t *testing.T) {
	ctx := context.Background()
	st := startPostgres(t)

	// сид справочных данных напрямую: клиент, отправление, счёт, коробы
	_, err := st.db.Exec(ctx, `INSERT INTO customers (id, name, phone) VALUES ('cust-1', 'Acme Traders', '+971500000001')`)
	require.NoError(t, err)
	_, err = st.db.Exec(ctx, `
INSERT INTO shipments (id, shipment_ref, customer_id, origin, destination, weight, status)
VALUES ('sh-1', 'SHP-1001', 'cust-1', 'KHI', 'DXB', 42.5, 'processing')`)
	require.NoError(t, err)
	_, err = st.db.Exec(ctx, `INSERT INTO invoices (id, invoice_ref, customer_id, amount) VALUES ('inv-1', 'INV-2024-001', 'cust-1', 1500)`)
	require.NoError(t, err)
	_, err = st.db.Exec(ctx, `INSERT INTO invoice_items (id, invoice_id, shipment_id) VALUES ('ii-1', 'inv-1', 'sh-1')`)
	require.NoError(t, err)
	_, err = st.db.Exec(ctx, `INSERT INTO barcodes (id, barcode_number, shipment_id) VALUES ('bc-1', 'BC-001', 'sh-1')`)
	require.NoError(t, err)
	_, err = st.db.Exec(ctx, `INSERT INTO barcodes (id, barcode_number, shipment_id) VALUES ('bc-2', 'BC-002', 'sh-1')`)
	require.NoError(t, err)

	// промах - nil, nil
	missing, err := st.GetBarcodeByNumber(ctx, "NOPE")
	require.NoError(t, err)
	require.Nil(t, missing)

	bc, err := st.GetBarcodeByNumber(ctx, "BC-001")
	require.NoError(t, err)
	require.Equal(t, "bc-1", bc.ID)
	require.Equal(t, models.BarcodeStatusPending, bc.Status)
	require.Nil(t, bc.LastScannedAt)

	// скан пишется в лог всегда, даже для неизвестного номера
	loc := "DXB Hub"
	now := time.Now().UTC().Truncate(time.Millisecond)
	ev, err := st.InsertScan(ctx, &models.ScanEvent{
		BarcodeID:     &bc.ID,
		BarcodeNumber: bc.BarcodeNumber,
		ScanType:      models.ScanTypeScan,
		Location:      &loc,
		OccurredAt:    now,
	})
	require.NoError(t, err)
	require.NotEmpty(t, ev.ID)

	ghost, err := st.InsertScan(ctx, &models.ScanEvent{
		BarcodeNumber: "GHOST-1",
		ScanType:      models.ScanTypeScan,
		OccurredAt:    now,
	})
	require.NoError(t, err)
	require.Nil(t, ghost.BarcodeID)

	// проекция двигается вперёд
	upd, err := st.UpdateBarcodeScanState(ctx, bc.ID, models.BarcodeStatusInTransit, now, &loc)
	require.NoError(t, err)
	require.NotNil(t, upd)
	require.Equal(t, models.BarcodeStatusInTransit, upd.Status)
	require.WithinDuration(t, now, *upd.LastScannedAt, time.Second)

	// более старый офлайн-скан проекцию не трогает: guard в SQL
	stale, err := st.UpdateBarcodeScanState(ctx, bc.ID, models.BarcodeStatusDelivered, now.Add(-time.Hour), &loc)
	require.NoError(t, err)
	require.Nil(t, stale)

	cur, err := st.GetBarcodeByNumber(ctx, "BC-001")
	require.NoError(t, err)
	require.Equal(t, models.BarcodeStatusInTransit, cur.Status)
	require.WithinDuration(t, now, *cur.LastScannedAt, time.Second)

	// равный timestamp проходит (last-write-wins)
	equal, err := st.UpdateBarcodeScanState(ctx, bc.ID, models.BarcodeStatusScannedForManifest, now, &loc)
	require.NoError(t, err)
	require.NotNil(t, equal)
	require.Equal(t, models.BarcodeStatusScannedForManifest, equal.Status)

	// resolve: находится только существующее
	resolved, err := st.ResolveBarcodeNumbers(ctx, []string{"BC-001", "NOPE", "BC-002"})
	require.NoError(t, err)
	require.Len(t, resolved, 2)

	// манифест: items + backfill manifest_id в логе сканов одной транзакцией
	w := 10.5
	m, err := st.CreateManifest(ctx, &models.Manifest{
		ManifestRef:  "MAN-7",
		OriginHub:    "KHI",
		Destination:  "DXB",
		AirlineCode:  "EK",
		ManifestDate: now,
		TotalWeight:  42.5,
		TotalPieces:  2,
		Status:       "scheduled",
	}, []models.ManifestItem{
		{ShipmentID: cur.ShipmentID, BarcodeID: "bc-1", Weight: &w},
		{ShipmentID: cur.ShipmentID, BarcodeID: "bc-2", Weight: nil},
	})
	require.NoError(t, err)
	require.NotEmpty(t, m.ID)
	require.Equal(t, "MAN-7", m.ManifestRef)

	var backfilled int
	require.NoError(t, st.db.QueryRow(ctx, `SELECT count(*) FROM package_scans WHERE manifest_id = $1`, m.ID).Scan(&backfilled))
	require.Equal(t, 1, backfilled) // только скан bc-1, ghost без barcode_id не трогаем

	// публичный трекинг: shipment -> barcodes -> scans
	sh, err := st.GetShipmentByRef(ctx, "SHP-1001")
	require.NoError(t, err)
	require.Equal(t, "sh-1", sh.ID)

	barcodes, err := st.ListBarcodesByShipments(ctx, []string{sh.ID})
	require.NoError(t, err)
	require.Len(t, barcodes, 2)

	scanLog, err := st.ListScansByBarcodes(ctx, []string{"bc-1", "bc-2"})
	require.NoError(t, err)
	require.Len(t, scanLog, 1)
	require.WithinDuration(t, now, scanLog[0].OccurredAt, time.Second)

	// invoice fallback: счёт -> отправления -> клиент
	inv, err := st.GetInvoiceByRef(ctx, "INV-2024-001")
	require.NoError(t, err)
	require.Equal(t, "inv-1", inv.ID)

	shipments, err := st.ListShipmentsByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, shipments, 1)
	require.Equal(t, "sh-1", shipments[0].ID)

	cust, err := st.GetCustomerByBarcodeID(ctx, "bc-1")
	require.NoError(t, err)
	require.Equal(t, "Acme Traders", cust.Name)
	require.Equal(t, "+971500000001", *cust.Phone)

	// уведомление пишется как состояние
	require.NoError(t, st.RecordNotification(ctx, &models.NotificationAttempt{
		ScanID:      ev.ID,
		Channel:     "whatsapp",
		Recipient:   *cust.Phone,
		Status:      models.NotificationStatusSent,
		AttemptedAt: now,
	}))
	var nCount int
	require.NoError(t, st.db.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE scan_id = $1`, ev.ID).Scan(&nCount))
	require.Equal(t, 1, nCount)
}
