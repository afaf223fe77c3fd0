package messages

import "time"

// ScanRecorded публикуется после записи скана в лог. Потребители
// (уведомления) не участвуют в транзакции записи: доставка best-effort.
type ScanRecorded struct {
	ScanID        string     `json:"scan_id"`
	BarcodeID     *string    `json:"barcode_id,omitempty"`
	BarcodeNumber string     `json:"barcode_number"`
	ScanType      string     `json:"scan_type"`
	Location      *string    `json:"location,omitempty"`
	BarcodeStatus string     `json:"barcode_status,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
	RecordedAt    time.Time  `json:"recorded_at"`
}
