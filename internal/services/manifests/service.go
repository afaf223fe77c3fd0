package manifests

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/tapango/cargotrack/internal/models"
)

// ErrNoPackagesResolved - именованный отказ: после фильтрации
// нерезолвленных сканов не осталось ни одного короба. UI по нему
// предлагает пересканировать, пустой манифест не создаётся.
var ErrNoPackagesResolved = errors.New("no packages resolved")

var (
	ErrOriginHubRequired   = errors.New("originHub is required")
	ErrDestinationRequired = errors.New("destination is required")
	ErrAirlineCodeRequired = errors.New("airlineCode is required")
)

type Repository interface {
	GetBarcodesByIDs(ctx context.Context, ids []string) ([]*models.Barcode, error)
	GetShipmentsByIDs(ctx context.Context, ids []string) ([]*models.Shipment, error)
	CreateManifest(ctx context.Context, m *models.Manifest, items []models.ManifestItem) (*models.Manifest, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateInput struct {
	ManifestRef       string
	OriginHub         string
	Destination       string
	AirlineCode       string
	ScannedBarcodeIDs []string
	CreatedBy         *string
}

// Create намеренно не идемпотентен: два вызова с одинаковым входом
// дают два манифеста, finalize-once - дисциплина UI.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Manifest, error) {
	if in.OriginHub == "" {
		return nil, ErrOriginHubRequired
	}
	if in.Destination == "" {
		return nil, ErrDestinationRequired
	}
	if in.AirlineCode == "" {
		return nil, ErrAirlineCodeRequired
	}

	ids := make([]string, 0, len(in.ScannedBarcodeIDs))
	for _, id := range in.ScannedBarcodeIDs {
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ErrNoPackagesResolved
	}

	barcodes, err := s.repo.GetBarcodesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(barcodes) == 0 {
		return nil, ErrNoPackagesResolved
	}

	shipmentIDs := make([]string, 0, len(barcodes))
	seen := make(map[string]struct{}, len(barcodes))
	for _, b := range barcodes {
		if b.ShipmentID == nil {
			continue
		}
		if _, ok := seen[*b.ShipmentID]; ok {
			continue
		}
		seen[*b.ShipmentID] = struct{}{}
		shipmentIDs = append(shipmentIDs, *b.ShipmentID)
	}

	weights := make(map[string]*float64, len(shipmentIDs))
	if len(shipmentIDs) > 0 {
		shipments, err := s.repo.GetShipmentsByIDs(ctx, shipmentIDs)
		if err != nil {
			return nil, err
		}
		for _, sh := range shipments {
			weights[sh.ID] = sh.Weight
		}
	}

	var totalWeight float64
	items := make([]models.ManifestItem, 0, len(barcodes))
	for _, b := range barcodes {
		it := models.ManifestItem{BarcodeID: b.ID, ShipmentID: b.ShipmentID}
		if b.ShipmentID != nil {
			if w := weights[*b.ShipmentID]; w != nil {
				it.Weight = w
				totalWeight += *w
			}
		}
		items = append(items, it)
	}

	ref := in.ManifestRef
	if ref == "" {
		ref = fmt.Sprintf("MAN-%d", time.Now().UnixMilli())
	}

	return s.repo.CreateManifest(ctx, &models.Manifest{
		ManifestRef:  ref,
		OriginHub:    in.OriginHub,
		Destination:  in.Destination,
		AirlineCode:  in.AirlineCode,
		ManifestDate: time.Now().UTC(),
		TotalWeight:  totalWeight,
		TotalPieces:  len(barcodes),
		Status:       "scheduled",
		CreatedBy:    in.CreatedBy,
	}, items)
}
