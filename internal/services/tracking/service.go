package tracking

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tapango/cargotrack/internal/cache"
	"github.com/tapango/cargotrack/internal/models"
)

var (
	ErrQueryRequired = errors.New("query is required")
	// ErrNotFound - ни одна из трёх категорий не совпала. Отличать от
	// "нашли, но пусто" (отправление без коробов - валидный ответ).
	ErrNotFound = errors.New("no shipment, barcode or invoice found for this reference")
)

const (
	LookupShipmentRef = "shipment_ref"
	LookupBarcode     = "barcode"
	LookupInvoiceRef  = "invoice_ref"
)

type Repository interface {
	GetShipmentByRef(ctx context.Context, ref string) (*models.Shipment, error)
	GetShipmentByID(ctx context.Context, id string) (*models.Shipment, error)
	GetBarcodeByNumber(ctx context.Context, number string) (*models.Barcode, error)
	ListBarcodesByShipments(ctx context.Context, shipmentIDs []string) ([]*models.Barcode, error)
	ListScansByBarcodes(ctx context.Context, barcodeIDs []string) ([]*models.ScanEvent, error)
	GetInvoiceByRef(ctx context.Context, ref string) (*models.Invoice, error)
	GetCustomerByID(ctx context.Context, id string) (*models.Customer, error)
	ListShipmentsByInvoice(ctx context.Context, invoiceID string) ([]*models.Shipment, error)
}

// Match - во что именно разрешилась строка запроса. Тип на каждую
// категорию вместо одного "резинового" агрегата, чтобы терминальные
// ветки цепочки были исчерпывающими.
type Match interface {
	lookupType() string
}

type ShipmentMatch struct{ Shipment *models.Shipment }
type BarcodeMatch struct{ Barcode *models.Barcode }
type InvoiceMatch struct{ Invoice *models.Invoice }

func (ShipmentMatch) lookupType() string { return LookupShipmentRef }
func (BarcodeMatch) lookupType() string  { return LookupBarcode }
func (InvoiceMatch) lookupType() string  { return LookupInvoiceRef }

// Result - консолидированный read-only вид для публичной страницы.
// Никогда не персистится, собирается на каждый запрос.
type Result struct {
	LookupType string                `json:"lookup_type"`
	Query      string                `json:"query"`
	Shipment   *models.Shipment      `json:"shipment"`
	Shipments  []*models.Shipment    `json:"shipments"`
	Barcodes   []*models.Barcode     `json:"barcodes"`
	Scans      []*models.ScanEvent   `json:"scans"`
	Invoice    *models.Invoice       `json:"invoice"`
	Customer   *models.Customer      `json:"customer"`
}

type Service struct {
	repo     Repository
	cache    cache.BytesCache
	cacheTTL time.Duration
}

func New(repo Repository, c cache.BytesCache, cacheTTL time.Duration) *Service {
	return &Service{repo: repo, cache: c, cacheTTL: cacheTTL}
}

// Lookup гоняет строку по цепочке shipment_ref -> barcode ->
// invoice_ref, первый успех терминален. Порядок фиксирован: ссылки на
// отправления - основной операционный ключ, счета дороже всего
// (джойн через позиции) и реже всего вводятся.
func (s *Service) Lookup(ctx context.Context, query string) (*Result, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, ErrQueryRequired
	}

	// Кэш best-effort: ошибки кэша равны промаху, инвалидация - только TTL.
	if s.cache != nil && s.cacheTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, trackKey(q)); err == nil && ok {
			var r Result
			if json.Unmarshal(b, &r) == nil {
				return &r, nil
			}
		}
	}

	match, err := s.match(ctx, q)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrNotFound
	}

	var result *Result
	switch m := match.(type) {
	case ShipmentMatch:
		result, err = s.assembleShipment(ctx, q, m.Shipment)
	case BarcodeMatch:
		result, err = s.assembleBarcode(ctx, q, m.Barcode)
	case InvoiceMatch:
		result, err = s.assembleInvoice(ctx, q, m.Invoice)
	default:
		return nil, errors.Errorf("unhandled match type %q", match.lookupType())
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if b, err := json.Marshal(result); err == nil {
			_ = s.cache.Set(ctx, trackKey(q), b, s.cacheTTL)
		}
	}

	return result, nil
}

func (s *Service) match(ctx context.Context, q string) (Match, error) {
	sh, err := s.repo.GetShipmentByRef(ctx, q)
	if err != nil {
		return nil, err
	}
	if sh != nil {
		return ShipmentMatch{Shipment: sh}, nil
	}

	bc, err := s.repo.GetBarcodeByNumber(ctx, q)
	if err != nil {
		return nil, err
	}
	if bc != nil {
		return BarcodeMatch{Barcode: bc}, nil
	}

	inv, err := s.repo.GetInvoiceByRef(ctx, q)
	if err != nil {
		return nil, err
	}
	if inv != nil {
		return InvoiceMatch{Invoice: inv}, nil
	}

	return nil, nil
}

func (s *Service) assembleShipment(ctx context.Context, q string, sh *models.Shipment) (*Result, error) {
	barcodes, scans, err := s.gather(ctx, []string{sh.ID})
	if err != nil {
		return nil, err
	}
	return &Result{
		LookupType: LookupShipmentRef,
		Query:      q,
		Shipment:   sh,
		Shipments:  []*models.Shipment{sh},
		Barcodes:   barcodes,
		Scans:      scans,
	}, nil
}

func (s *Service) assembleBarcode(ctx context.Context, q string, bc *models.Barcode) (*Result, error) {
	if bc.ShipmentID != nil {
		sh, err := s.repo.GetShipmentByID(ctx, *bc.ShipmentID)
		if err != nil {
			return nil, err
		}
		if sh != nil {
			// Привязанный короб показываем в форме отправления, чтобы
			// вид совпадал со случаем shipment_ref.
			r, err := s.assembleShipment(ctx, q, sh)
			if err != nil {
				return nil, err
			}
			r.LookupType = LookupBarcode
			return r, nil
		}
	}

	scans, err := s.repo.ListScansByBarcodes(ctx, []string{bc.ID})
	if err != nil {
		return nil, err
	}
	return &Result{
		LookupType: LookupBarcode,
		Query:      q,
		Barcodes:   []*models.Barcode{bc},
		Scans:      scans,
	}, nil
}

func (s *Service) assembleInvoice(ctx context.Context, q string, inv *models.Invoice) (*Result, error) {
	shipments, err := s.repo.ListShipmentsByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}

	shipmentIDs := make([]string, 0, len(shipments))
	for _, sh := range shipments {
		shipmentIDs = append(shipmentIDs, sh.ID)
	}

	barcodes, scans, err := s.gather(ctx, shipmentIDs)
	if err != nil {
		return nil, err
	}

	var customer *models.Customer
	if inv.CustomerID != nil {
		customer, err = s.repo.GetCustomerByID(ctx, *inv.CustomerID)
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		LookupType: LookupInvoiceRef,
		Query:      q,
		Shipments:  shipments,
		Barcodes:   barcodes,
		Scans:      scans,
		Invoice:    inv,
		Customer:   customer,
	}, nil
}

func (s *Service) gather(ctx context.Context, shipmentIDs []string) ([]*models.Barcode, []*models.ScanEvent, error) {
	barcodes, err := s.repo.ListBarcodesByShipments(ctx, shipmentIDs)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(barcodes))
	for _, b := range barcodes {
		ids = append(ids, b.ID)
	}

	scans, err := s.repo.ListScansByBarcodes(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return barcodes, scans, nil
}

func trackKey(q string) string {
	return "track:" + q
}
