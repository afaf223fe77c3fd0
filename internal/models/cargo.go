package models

import "time"

// Статусы штрихкода (materialized view поверх лога сканов).
const (
	BarcodeStatusPending            = "pending"
	BarcodeStatusInTransit          = "in-transit"
	BarcodeStatusScannedForManifest = "scanned_for_manifest"
	BarcodeStatusDelivered          = "delivered"
)

const (
	ScanTypeScan               = "scan"
	ScanTypeScannedForManifest = "scanned_for_manifest"
	ScanTypeDelivered          = "delivered"
)

type Shipment struct {
	ID          string
	ShipmentRef string
	CustomerID  *string
	Origin      *string
	Destination *string
	Weight      *float64
	Status      *string
	Progress    *int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Barcode struct {
	ID                  string
	BarcodeNumber       string
	ShipmentID          *string
	Status              string
	LastScannedAt       *time.Time
	LastScannedLocation *string
	CreatedAt           time.Time
}

// ScanEvent - одна запись лога сканирований, append-only.
// BarcodeID nullable: неизвестные номера тоже пишем в лог (audit),
// но Barcode под них не создаём.
type ScanEvent struct {
	ID            string
	BarcodeID     *string
	BarcodeNumber string
	ScanType      string
	Location      *string
	ScannedBy     *string
	ManifestID    *string
	OccurredAt    time.Time
	CreatedAt     time.Time
}

type ScanInput struct {
	Barcode    string
	ScanType   string
	Location   *string
	OperatorID *string
	// OccurredAt is the client-side scan time. Offline replays carry the
	// original capture time, which may be older than what is stored.
	OccurredAt time.Time
}

type Manifest struct {
	ID           string
	ManifestRef  string
	OriginHub    string
	Destination  string
	AirlineCode  string
	ManifestDate time.Time
	TotalWeight  float64
	TotalPieces  int
	Status       string
	CreatedBy    *string
	CreatedAt    time.Time
}

type ManifestItem struct {
	ManifestID string
	ShipmentID *string
	BarcodeID  string
	Weight     *float64
}

type Invoice struct {
	ID          string
	InvoiceRef  string
	Amount      *float64
	Status      *string
	InvoiceDate *time.Time
	DueDate     *time.Time
	CustomerID  *string
	CreatedAt   time.Time
}

type Customer struct {
	ID    string
	Name  string
	Phone *string
	Email *string
}

// NotificationAttempt - результат push-уведомления по скану.
// Неуспех фиксируется как состояние, а не висит и не роняет consumer.
type NotificationAttempt struct {
	ID          string
	ScanID      string
	Channel     string
	Recipient   string
	Status      string
	Error       *string
	AttemptedAt time.Time
}

const (
	NotificationStatusSent   = "sent"
	NotificationStatusFailed = "failed"
)
