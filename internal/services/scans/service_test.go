package scans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tapango/cargotrack/internal/models"
)

type fakeRepo struct {
	barcodes map[string]*models.Barcode

	insertedScans []*models.ScanEvent
	insertErr     error

	updateCalls  int
	updateStatus string
	updateAt     time.Time
	updateOut    *models.Barcode
	updateErr    error

	resolveIn []string
}

func (f *fakeRepo) InsertScan(ctx context.Context, ev *models.ScanEvent) (*models.ScanEvent, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	out := *ev
	out.ID = "scan-1"
	out.CreatedAt = time.Now().UTC()
	f.insertedScans = append(f.insertedScans, &out)
	return &out, nil
}

func (f *fakeRepo) GetBarcodeByNumber(ctx context.Context, number string) (*models.Barcode, error) {
	return f.barcodes[number], nil
}

func (f *fakeRepo) UpdateBarcodeScanState(ctx context.Context, id, status string, scannedAt time.Time, location *string) (*models.Barcode, error) {
	f.updateCalls++
	f.updateStatus = status
	f.updateAt = scannedAt
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateOut, nil
}

func (f *fakeRepo) ResolveBarcodeNumbers(ctx context.Context, numbers []string) ([]*models.Barcode, error) {
	f.resolveIn = numbers
	var out []*models.Barcode
	for n, b := range f.barcodes {
		_ = n
		out = append(out, b)
	}
	return out, nil
}

type fakeProducer struct {
	published int
	err       error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.published++
	return p.err
}

func TestIngest_ValidatesBarcode(t *testing.T) {
	s := New(&fakeRepo{}, nil, "")
	_, _, err := s.Ingest(context.Background(), models.ScanInput{Barcode: "  "})
	require.ErrorIs(t, err, ErrBarcodeRequired)
}

func TestIngest_UnknownBarcodeStillRecorded(t *testing.T) {
	r := &fakeRepo{barcodes: map[string]*models.Barcode{}}
	s := New(r, nil, "")

	ev, bc, err := s.Ingest(context.Background(), models.ScanInput{Barcode: "NOPE-1"})
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Nil(t, ev.BarcodeID)
	require.Nil(t, bc) // accepted, unlinked
	require.Len(t, r.insertedScans, 1)
	require.Zero(t, r.updateCalls)
}

func TestIngest_UpdatesProjectionWithDerivedStatus(t *testing.T) {
	known := &models.Barcode{ID: "b1", BarcodeNumber: "BC-001", Status: models.BarcodeStatusPending}
	updated := &models.Barcode{ID: "b1", BarcodeNumber: "BC-001", Status: models.BarcodeStatusScannedForManifest}
	r := &fakeRepo{
		barcodes:  map[string]*models.Barcode{"BC-001": known},
		updateOut: updated,
	}
	s := New(r, nil, "")

	loc := "Imphal"
	ev, bc, err := s.Ingest(context.Background(), models.ScanInput{
		Barcode:  "BC-001",
		ScanType: models.ScanTypeScannedForManifest,
		Location: &loc,
	})
	require.NoError(t, err)
	require.NotNil(t, ev.BarcodeID)
	require.Equal(t, "b1", *ev.BarcodeID)
	require.Equal(t, 1, r.updateCalls)
	require.Equal(t, models.BarcodeStatusScannedForManifest, r.updateStatus)
	require.Equal(t, models.BarcodeStatusScannedForManifest, bc.Status)
}

func TestIngest_StaleEventDoesNotTouchProjection(t *testing.T) {
	newer := time.Now().UTC()
	known := &models.Barcode{
		ID:            "b1",
		BarcodeNumber: "BC-001",
		Status:        models.BarcodeStatusInTransit,
		LastScannedAt: &newer,
	}
	r := &fakeRepo{barcodes: map[string]*models.Barcode{"BC-001": known}}
	s := New(r, nil, "")

	ev, bc, err := s.Ingest(context.Background(), models.ScanInput{
		Barcode:    "BC-001",
		OccurredAt: newer.Add(-time.Hour), // отложенный офлайн-скан
	})
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Len(t, r.insertedScans, 1) // лог пишется всегда
	require.Zero(t, r.updateCalls)
	require.Equal(t, models.BarcodeStatusInTransit, bc.Status)
}

func TestIngest_EqualTimestampUpdates(t *testing.T) {
	at := time.Now().UTC()
	known := &models.Barcode{ID: "b1", BarcodeNumber: "BC-001", LastScannedAt: &at}
	r := &fakeRepo{
		barcodes:  map[string]*models.Barcode{"BC-001": known},
		updateOut: known,
	}
	s := New(r, nil, "")

	_, _, err := s.Ingest(context.Background(), models.ScanInput{Barcode: "BC-001", OccurredAt: at})
	require.NoError(t, err)
	require.Equal(t, 1, r.updateCalls)
}

func TestIngest_PublishFailureSwallowed(t *testing.T) {
	r := &fakeRepo{barcodes: map[string]*models.Barcode{}}
	p := &fakeProducer{err: errors.New("broker down")}
	s := New(r, p, "scan.recorded")

	_, _, err := s.Ingest(context.Background(), models.ScanInput{Barcode: "BC-002"})
	require.NoError(t, err)
	require.Equal(t, 1, p.published)
}

func TestResolve_PartialAlignment(t *testing.T) {
	r := &fakeRepo{barcodes: map[string]*models.Barcode{
		"A": {ID: "idA", BarcodeNumber: "A"},
		"C": {ID: "idC", BarcodeNumber: "C"},
	}}
	s := New(r, nil, "")

	out, err := s.Resolve(context.Background(), []string{"A", "B", "C"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, "idA", out[0].ID)
	require.Nil(t, out[1])
	require.Equal(t, "idC", out[2].ID)
}

func TestResolve_DuplicatesEachResolved(t *testing.T) {
	r := &fakeRepo{barcodes: map[string]*models.Barcode{
		"A": {ID: "idA", BarcodeNumber: "A"},
	}}
	s := New(r, nil, "")

	out, err := s.Resolve(context.Background(), []string{"A", "A"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "idA", out[0].ID)
	require.Equal(t, "idA", out[1].ID)
}

func TestResolve_Empty(t *testing.T) {
	s := New(&fakeRepo{}, nil, "")
	out, err := s.Resolve(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, out)
}
