package cargoapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tapango/cargotrack/internal/models"
	"github.com/tapango/cargotrack/internal/services/tracking"
)

// Транспортные виды отделены от models: контракт ответа живёт здесь
// и не меняется от переименований полей в домене.

type shipmentView struct {
	ID          string     `json:"id"`
	ShipmentRef string     `json:"shipment_ref"`
	CustomerID  *string    `json:"customer_id"`
	Origin      *string    `json:"origin"`
	Destination *string    `json:"destination"`
	Weight      *float64   `json:"weight"`
	Status      *string    `json:"status"`
	Progress    *int32     `json:"progress"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type barcodeView struct {
	ID                  string     `json:"id"`
	BarcodeNumber       string     `json:"barcode_number"`
	ShipmentID          *string    `json:"shipment_id"`
	Status              string     `json:"status"`
	LastScannedAt       *time.Time `json:"last_scanned_at"`
	LastScannedLocation *string    `json:"last_scanned_location"`
}

type scanView struct {
	ID            string    `json:"id"`
	BarcodeID     *string   `json:"barcode_id"`
	BarcodeNumber string    `json:"barcode_number"`
	ScanType      string    `json:"scan_type"`
	Location      *string   `json:"location"`
	ScannedBy     *string   `json:"scanned_by"`
	ManifestID    *string   `json:"manifest_id"`
	OccurredAt    time.Time `json:"occurred_at"`
	CreatedAt     time.Time `json:"created_at"`
}

type manifestView struct {
	ID           string    `json:"id"`
	ManifestRef  string    `json:"manifest_ref"`
	OriginHub    string    `json:"origin_hub"`
	Destination  string    `json:"destination"`
	AirlineCode  string    `json:"airline_code"`
	ManifestDate time.Time `json:"manifest_date"`
	TotalWeight  float64   `json:"total_weight"`
	TotalPieces  int       `json:"total_pieces"`
	Status       string    `json:"status"`
	CreatedBy    *string   `json:"created_by"`
}

type invoiceView struct {
	ID          string     `json:"id"`
	InvoiceRef  string     `json:"invoice_ref"`
	Amount      *float64   `json:"amount"`
	Status      *string    `json:"status"`
	InvoiceDate *time.Time `json:"invoice_date"`
	DueDate     *time.Time `json:"due_date"`
}

type customerView struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
	Email *string `json:"email"`
}

type lookupView struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type trackView struct {
	Lookup     lookupView      `json:"lookup"`
	Shipment   *shipmentView   `json:"shipment"`
	Shipments  []*shipmentView `json:"shipments"`
	Barcodes   []*barcodeView  `json:"barcodes"`
	Scans      []*scanView     `json:"scans"`
	Invoice    *invoiceView    `json:"invoice"`
	Customer   *customerView   `json:"customer"`
}

func toShipmentJSON(sh *models.Shipment) *shipmentView {
	if sh == nil {
		return nil
	}
	return &shipmentView{
		ID:          sh.ID,
		ShipmentRef: sh.ShipmentRef,
		CustomerID:  sh.CustomerID,
		Origin:      sh.Origin,
		Destination: sh.Destination,
		Weight:      sh.Weight,
		Status:      sh.Status,
		Progress:    sh.Progress,
		CreatedAt:   sh.CreatedAt,
		UpdatedAt:   sh.UpdatedAt,
	}
}

func toBarcodeJSON(b *models.Barcode) *barcodeView {
	if b == nil {
		return nil
	}
	return &barcodeView{
		ID:                  b.ID,
		BarcodeNumber:       b.BarcodeNumber,
		ShipmentID:          b.ShipmentID,
		Status:              b.Status,
		LastScannedAt:       b.LastScannedAt,
		LastScannedLocation: b.LastScannedLocation,
	}
}

func toScanJSON(e *models.ScanEvent) *scanView {
	if e == nil {
		return nil
	}
	return &scanView{
		ID:            e.ID,
		BarcodeID:     e.BarcodeID,
		BarcodeNumber: e.BarcodeNumber,
		ScanType:      e.ScanType,
		Location:      e.Location,
		ScannedBy:     e.ScannedBy,
		ManifestID:    e.ManifestID,
		OccurredAt:    e.OccurredAt,
		CreatedAt:     e.CreatedAt,
	}
}

func toManifestJSON(m *models.Manifest) *manifestView {
	if m == nil {
		return nil
	}
	return &manifestView{
		ID:           m.ID,
		ManifestRef:  m.ManifestRef,
		OriginHub:    m.OriginHub,
		Destination:  m.Destination,
		AirlineCode:  m.AirlineCode,
		ManifestDate: m.ManifestDate,
		TotalWeight:  m.TotalWeight,
		TotalPieces:  m.TotalPieces,
		Status:       m.Status,
		CreatedBy:    m.CreatedBy,
	}
}

func toInvoiceJSON(inv *models.Invoice) *invoiceView {
	if inv == nil {
		return nil
	}
	return &invoiceView{
		ID:          inv.ID,
		InvoiceRef:  inv.InvoiceRef,
		Amount:      inv.Amount,
		Status:      inv.Status,
		InvoiceDate: inv.InvoiceDate,
		DueDate:     inv.DueDate,
	}
}

func toCustomerJSON(c *models.Customer) *customerView {
	if c == nil {
		return nil
	}
	return &customerView{ID: c.ID, Name: c.Name, Phone: c.Phone, Email: c.Email}
}

func toTrackJSON(r *tracking.Result) *trackView {
	v := &trackView{
		Lookup:     lookupView{Type: r.LookupType, Value: r.Query},
		Shipment:   toShipmentJSON(r.Shipment),
		Shipments:  make([]*shipmentView, 0, len(r.Shipments)),
		Barcodes:   make([]*barcodeView, 0, len(r.Barcodes)),
		Scans:      make([]*scanView, 0, len(r.Scans)),
		Invoice:    toInvoiceJSON(r.Invoice),
		Customer:   toCustomerJSON(r.Customer),
	}
	for _, sh := range r.Shipments {
		v.Shipments = append(v.Shipments, toShipmentJSON(sh))
	}
	for _, b := range r.Barcodes {
		v.Barcodes = append(v.Barcodes, toBarcodeJSON(b))
	}
	for _, e := range r.Scans {
		v.Scans = append(v.Scans, toScanJSON(e))
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg, "status": status})
}
