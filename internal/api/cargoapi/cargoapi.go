package cargoapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/tapango/cargotrack/internal/models"
	"github.com/tapango/cargotrack/internal/services/manifests"
	"github.com/tapango/cargotrack/internal/services/scans"
	"github.com/tapango/cargotrack/internal/services/tracking"
)

type ScanService interface {
	Ingest(ctx context.Context, in models.ScanInput) (*models.ScanEvent, *models.Barcode, error)
	Resolve(ctx context.Context, numbers []string) ([]*models.Barcode, error)
}

type ManifestService interface {
	Create(ctx context.Context, in manifests.CreateInput) (*models.Manifest, error)
}

type TrackingService interface {
	Lookup(ctx context.Context, query string) (*tracking.Result, error)
}

type Server struct {
	scans     ScanService
	manifests ManifestService
	tracking  TrackingService
	limiter   RateLimiter
}

func New(scanSvc ScanService, manifestSvc ManifestService, trackingSvc TrackingService, limiter RateLimiter) *Server {
	return &Server{
		scans:     scanSvc,
		manifests: manifestSvc,
		tracking:  trackingSvc,
		limiter:   limiter,
	}
}

func (s *Server) Routes(r chi.Router) {
	r.Post("/scans", s.handleCreateScan)
	r.Post("/resolve-barcodes", s.handleResolveBarcodes)
	r.Post("/manifests", s.handleCreateManifest)
	// обе формы публичного трекинга под одним bucket'ом
	r.Post("/public/track", s.withRateLimit("tracking", s.handleTrack))
	r.Get("/public/track", s.withRateLimit("tracking", s.handleTrack))
}

type scanRequest struct {
	Barcode    string    `json:"barcode"`
	ScanType   string    `json:"scanType"`
	Location   *string   `json:"location"`
	OperatorID *string   `json:"operatorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, bc, err := s.scans.Ingest(r.Context(), models.ScanInput{
		Barcode:    req.Barcode,
		ScanType:   req.ScanType,
		Location:   req.Location,
		OperatorID: req.OperatorID,
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		if errors.Is(err, scans.ErrBarcodeRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("scan ingest failed", "barcode", req.Barcode, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := map[string]any{
		"scan":    toScanJSON(ev),
		"barcode": nil,
	}
	if bc != nil {
		resp["barcode"] = toBarcodeJSON(bc)
	}
	writeJSON(w, http.StatusOK, resp)
}

type resolveRequest struct {
	Barcodes []string `json:"barcodes"`
}

func (s *Server) handleResolveBarcodes(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Barcodes) == 0 {
		writeError(w, http.StatusBadRequest, "barcodes must be a non-empty array")
		return
	}

	resolved, err := s.scans.Resolve(r.Context(), req.Barcodes)
	if err != nil {
		slog.Error("resolve barcodes failed", "count", len(req.Barcodes), "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ids := make([]*string, len(resolved))
	rows := make([]any, len(resolved))
	for i, b := range resolved {
		if b == nil {
			continue
		}
		id := b.ID
		ids[i] = &id
		rows[i] = map[string]any{
			"id":             b.ID,
			"barcode_number": b.BarcodeNumber,
			"shipment_id":    b.ShipmentID,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids, "resolved": rows})
}

type manifestRequest struct {
	ManifestRef       string   `json:"manifestRef"`
	OriginHub         string   `json:"originHub"`
	Destination       string   `json:"destination"`
	AirlineCode       string   `json:"airlineCode"`
	ScannedBarcodeIDs []string `json:"scannedBarcodeIds"`
	CreatedBy         *string  `json:"createdBy"`
}

func (s *Server) handleCreateManifest(w http.ResponseWriter, r *http.Request) {
	var req manifestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}

	m, err := s.manifests.Create(r.Context(), manifests.CreateInput{
		ManifestRef:       req.ManifestRef,
		OriginHub:         req.OriginHub,
		Destination:       req.Destination,
		AirlineCode:       req.AirlineCode,
		ScannedBarcodeIDs: req.ScannedBarcodeIDs,
		CreatedBy:         req.CreatedBy,
	})
	if err != nil {
		switch {
		case errors.Is(err, manifests.ErrNoPackagesResolved):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"success": false, "error": err.Error()})
		case errors.Is(err, manifests.ErrOriginHubRequired),
			errors.Is(err, manifests.ErrDestinationRequired),
			errors.Is(err, manifests.ErrAirlineCodeRequired):
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		default:
			slog.Error("manifest create failed", "manifest_ref", req.ManifestRef, "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"manifest": toManifestJSON(m),
	})
}

type trackRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var query string
	if r.Method == http.MethodGet {
		query = r.URL.Query().Get("query")
	} else {
		var req trackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		query = req.Query
	}

	res, err := s.tracking.Lookup(r.Context(), query)
	if err != nil {
		switch {
		case errors.Is(err, tracking.ErrQueryRequired):
			writeError(w, http.StatusBadRequest, "query is required")
		case errors.Is(err, tracking.ErrNotFound):
			writeError(w, http.StatusNotFound, "No shipment, barcode or invoice found for this reference")
		default:
			slog.Error("tracking lookup failed", "query", query, "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toTrackJSON(res))
}
