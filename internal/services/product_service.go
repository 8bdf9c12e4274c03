// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/suppleit/suppleit-backend/internal/config"
	"github.com/suppleit/suppleit-backend/internal/models"
)

// ProductService reconciles the upstream product API with the local store.
// Remote results are written through to the store; any failure on the
// remote path is answered from the store instead.
type ProductService struct {
	source     ProductSource
	normalizer *ProductNormalizer
	store      ProductStore
	archiver   ResponseArchiver
	logger     logrus.FieldLogger
}

type SearchProductsRequest struct {
	Keyword string `form:"keyword" json:"keyword" validate:"required,max=100,no_ctrl"`
}

type SearchResult struct {
	Keyword        string                 `json:"keyword"`
	Source         models.SearchSource    `json:"source"`
	FallbackReason models.FallbackReason  `json:"fallback_reason,omitempty"`
	Products       []models.ProductRecord `json:"products"`
	Inserted       int                    `json:"inserted"`
	Updated        int                    `json:"updated"`
	Skipped        []SkippedItem          `json:"skipped,omitempty"`
	StoreErrors    []string               `json:"store_errors,omitempty"`
}

type upsertOutcome int

const (
	upsertInserted upsertOutcome = iota + 1
	upsertUpdated
)

// archiver may be nil.
func NewProductService(source ProductSource, normalizer *ProductNormalizer, store ProductStore, archiver ResponseArchiver, logger logrus.FieldLogger) *ProductService {
	return &ProductService{
		source:     source,
		normalizer: normalizer,
		store:      store,
		archiver:   archiver,
		logger:     logger.WithField("component", "product_service"),
	}
}

// BuildProductService wires the upstream client, normalizer and optional
// archive from configuration around the given store.
func BuildProductService(cfg *config.Config, store ProductStore, logger logrus.FieldLogger) (*ProductService, error) {
	client, err := NewHealthFoodClient(cfg.HealthFoodAPI, logger)
	if err != nil {
		return nil, err
	}

	normalizer := NewProductNormalizer(cfg.HealthFoodAPI.OptionalFields, cfg.HealthFoodAPI.FallbackID)

	var archiver ResponseArchiver
	if cfg.Archive.Enabled {
		archiveService, err := NewArchiveService(cfg.AWS, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize archive: %w", err)
		}
		archiver = archiveService
	}

	return NewProductService(client, normalizer, store, archiver, logger), nil
}

// SearchProducts never fails: remote errors degrade to a store search and
// store errors degrade to an empty list. A blank keyword is still sent
// upstream but never searches the store. Diagnostics are on the result.
func (s *ProductService) SearchProducts(ctx context.Context, keyword string) *SearchResult {
	keyword = strings.TrimSpace(keyword)
	log := s.logger.WithField("keyword", keyword)
	log.Info("Product search started")

	result := &SearchResult{
		Keyword:  keyword,
		Products: []models.ProductRecord{},
	}

	body, err := s.source.Fetch(ctx, keyword)
	if err != nil {
		log.WithError(err).Warn("Upstream request failed, falling back to store search")
		return s.searchStore(ctx, result, models.FallbackTransportFailure)
	}

	s.archive(ctx, keyword, body)

	normalized, err := s.normalizer.Normalize(body)
	if err != nil {
		if errors.Is(err, ErrNoResults) {
			log.Info("Upstream returned no results, falling back to store search")
			return s.searchStore(ctx, result, models.FallbackNoResults)
		}
		log.WithError(err).Warn("Upstream response could not be parsed, falling back to store search")
		return s.searchStore(ctx, result, models.FallbackParseFailure)
	}

	result.Skipped = append(result.Skipped, normalized.Skipped...)
	if len(normalized.Items) == 0 {
		log.WithField("skipped", len(normalized.Skipped)).Warn("No upstream item could be normalized, falling back to store search")
		return s.searchStore(ctx, result, models.FallbackNoUsableItems)
	}

	result.Source = models.SearchSourceRemote
	for _, item := range normalized.Items {
		record := item.Record
		if record.ID == 0 {
			log.WithFields(logrus.Fields{
				"index":        item.Index,
				"product_name": record.ProductName,
			}).Warn("Product has no identifier, not saving")
			result.Skipped = append(result.Skipped, SkippedItem{
				Index:       item.Index,
				ProductName: record.ProductName,
				Reason:      "no identifier could be derived",
			})
			continue
		}

		outcome, err := s.saveProduct(ctx, record)
		switch {
		case err != nil:
			config.LogError(log, "product_service", "saveProduct", logrus.Fields{"prd_id": record.ID}, err)
			result.StoreErrors = append(result.StoreErrors, fmt.Sprintf("prd_id %d: %v", record.ID, err))
		case outcome == upsertInserted:
			result.Inserted++
		case outcome == upsertUpdated:
			result.Updated++
		}

		result.Products = append(result.Products, record)
	}

	log.WithFields(logrus.Fields{
		"count":    len(result.Products),
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"skipped":  len(result.Skipped),
	}).Info("Product search answered from upstream")

	return result
}

// saveProduct inserts a new row or overwrites the existing one. A duplicate
// on insert means a concurrent search stored it first; the write then becomes
// an update so the last writer wins.
func (s *ProductService) saveProduct(ctx context.Context, record models.ProductRecord) (upsertOutcome, error) {
	product := models.ProductFromRecord(record)

	_, err := s.store.GetByID(ctx, record.ID)
	switch {
	case errors.Is(err, ErrProductNotFound):
		err = s.store.Insert(ctx, product)
		if err == nil {
			return upsertInserted, nil
		}
		if !errors.Is(err, ErrDuplicateProduct) {
			return 0, err
		}
	case err != nil:
		return 0, err
	}

	if err := s.store.Update(ctx, product); err != nil {
		return 0, err
	}
	return upsertUpdated, nil
}

func (s *ProductService) searchStore(ctx context.Context, result *SearchResult, reason models.FallbackReason) *SearchResult {
	result.Source = models.SearchSourceStore
	result.FallbackReason = reason

	// A blank term would match every row.
	if result.Keyword == "" {
		s.logger.WithField("reason", reason).Info("Blank keyword, skipping store search")
		return result
	}

	products, err := s.store.SearchByKeyword(ctx, result.Keyword)
	if err != nil {
		config.LogError(s.logger, "product_service", "searchStore", logrus.Fields{"keyword": result.Keyword}, err)
		result.StoreErrors = append(result.StoreErrors, err.Error())
		return result
	}

	for i := range products {
		result.Products = append(result.Products, products[i].ToRecord())
	}

	s.logger.WithFields(logrus.Fields{
		"keyword": result.Keyword,
		"reason":  reason,
		"count":   len(result.Products),
	}).Info("Product search answered from store")

	return result
}

func (s *ProductService) archive(ctx context.Context, keyword string, body []byte) {
	if s.archiver == nil {
		return
	}
	archived, err := s.archiver.Archive(ctx, keyword, body)
	if err != nil {
		s.logger.WithError(err).WithField("keyword", keyword).Warn("Failed to archive upstream response")
		return
	}
	s.logger.WithField("location", archived.Location).Debug("Archived upstream response")
}

// GetProductByID returns ErrProductNotFound when the store has no such row.
func (s *ProductService) GetProductByID(ctx context.Context, id int64) (*models.ProductRecord, error) {
	s.logger.WithField("prd_id", id).Info("Looking up product")

	product, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	record := product.ToRecord()
	return &record, nil
}
