package scanqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// APIClient доставляет сканы в POST /scans и служит probe'ом
// доступности API для перехода offline -> online.
type APIClient struct {
	baseURL string
	httpc   *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

type scanPayload struct {
	Barcode    string    `json:"barcode"`
	ScanType   string    `json:"scanType,omitempty"`
	Location   *string   `json:"location,omitempty"`
	OperatorID *string   `json:"operatorId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (c *APIClient) Deliver(ctx context.Context, scan PendingScan) error {
	body, err := json.Marshal(scanPayload{
		Barcode:    scan.Barcode,
		ScanType:   scan.ScanType,
		Location:   scan.Location,
		OperatorID: scan.OperatorID,
		OccurredAt: scan.OccurredAt,
	})
	if err != nil {
		return errors.Wrap(err, "marshal scan")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scans", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode/100 == 2:
		return nil
	case resp.StatusCode/100 == 4:
		return errors.Wrapf(ErrRejected, "http %d", resp.StatusCode)
	default:
		return fmt.Errorf("scan api http %d", resp.StatusCode)
	}
}

// Online - лёгкий probe для детекции восстановления сети.
func (c *APIClient) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode/100 == 2
}
