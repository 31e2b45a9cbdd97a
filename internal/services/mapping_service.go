package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"wholesale-catalog-service/internal/models"
	"wholesale-catalog-service/internal/repository"
)

// defaultDeferNote is recorded when an operator defers a mapping without
// giving a reason
const defaultDeferNote = "deferred pending review"

// MappingService resolves raw vendor collection strings to internal
// categories. It maintains the invariant that a mapping has status MAPPED
// exactly when a category is set.
type MappingService struct {
	mappingRepo  repository.MappingRepositoryInterface
	categoryRepo repository.CategoryRepositoryInterface
	rawRepo      repository.RawRepositoryInterface
	logger       *logrus.Logger
}

// NewMappingService creates a new mapping service
func NewMappingService(
	mappingRepo repository.MappingRepositoryInterface,
	categoryRepo repository.CategoryRepositoryInterface,
	rawRepo repository.RawRepositoryInterface,
	logger *logrus.Logger,
) *MappingService {
	return &MappingService{
		mappingRepo:  mappingRepo,
		categoryRepo: categoryRepo,
		rawRepo:      rawRepo,
		logger:       logger,
	}
}

// Observe registers a raw value seen during a sync. A value seen for the
// first time gets an UNMAPPED row with the given SKU count; a value already
// known only has its cached count refreshed. Status and target are never
// auto-changed here.
func (s *MappingService) Observe(ctx context.Context, rawValue string, skuCount int) error {
	_, err := s.mappingRepo.GetByRawValue(ctx, rawValue)
	if err == nil {
		return s.mappingRepo.UpdateSkuCount(ctx, rawValue, skuCount)
	}
	if err != repository.ErrNotFound {
		return err
	}

	mapping := &models.CollectionMapping{
		RawValue: rawValue,
		Status:   models.MappingUnmapped,
		SkuCount: skuCount,
	}
	if err := s.mappingRepo.Create(ctx, mapping); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"rawValue": rawValue,
		"skuCount": skuCount,
	}).Info("New collection value observed, awaiting mapping")
	return nil
}

// Resolve maps a raw value to an existing category and clears any note
func (s *MappingService) Resolve(ctx context.Context, rawValue string, categoryID uuid.UUID) (*models.CollectionMapping, error) {
	exists, err := s.categoryRepo.Exists(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &ValidationError{
			Field:   "categoryId",
			Message: fmt.Sprintf("category %s does not exist", categoryID),
		}
	}

	mapping, err := s.mappingRepo.GetByRawValue(ctx, rawValue)
	if err != nil {
		return nil, err
	}

	mapping.CategoryID = &categoryID
	mapping.Status = models.MappingMapped
	mapping.Note = ""
	if err := s.mappingRepo.Update(ctx, mapping); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"rawValue":   rawValue,
		"categoryId": categoryID,
	}).Info("Collection value resolved")
	return mapping, nil
}

// Defer postpones the decision on a raw value without blocking the sync.
// The mapping drops out of the unmapped triage list but its SKUs stay
// excluded from the canonical catalog.
func (s *MappingService) Defer(ctx context.Context, rawValue, note string) (*models.CollectionMapping, error) {
	mapping, err := s.mappingRepo.GetByRawValue(ctx, rawValue)
	if err != nil {
		return nil, err
	}

	if note == "" {
		note = defaultDeferNote
	}
	mapping.CategoryID = nil
	mapping.Category = nil
	mapping.Status = models.MappingDeferred
	mapping.Note = note
	if err := s.mappingRepo.Update(ctx, mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// Unmap undoes a resolution, returning the value to the unmapped pool
func (s *MappingService) Unmap(ctx context.Context, rawValue string) (*models.CollectionMapping, error) {
	mapping, err := s.mappingRepo.GetByRawValue(ctx, rawValue)
	if err != nil {
		return nil, err
	}

	mapping.CategoryID = nil
	mapping.Category = nil
	mapping.Status = models.MappingUnmapped
	if err := s.mappingRepo.Update(ctx, mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// ListByStatus lists mappings, optionally filtered by status, highest SKU
// count first. The filter is case-insensitive; stored values are uppercase.
func (s *MappingService) ListByStatus(ctx context.Context, status string) ([]models.CollectionMapping, error) {
	normalized := models.MappingStatus(strings.ToUpper(status))
	switch normalized {
	case "", models.MappingMapped, models.MappingUnmapped, models.MappingDeferred:
	default:
		return nil, &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("unknown mapping status %q", status),
		}
	}
	return s.mappingRepo.ListByStatus(ctx, normalized)
}

// StagedSkus lists the staged raw records currently carrying a raw value,
// used as an impact preview before mapping it
func (s *MappingService) StagedSkus(ctx context.Context, rawValue string) ([]models.RawVariantRecord, error) {
	if _, err := s.mappingRepo.GetByRawValue(ctx, rawValue); err != nil {
		return nil, err
	}
	return s.rawRepo.ListByCollection(ctx, rawValue)
}
