package services

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"wholesale-catalog-service/internal/models"
	"wholesale-catalog-service/internal/repository"
)

// TransformOptions controls a transform run
type TransformOptions struct {
	// SkipBackup skips the pre-transform snapshot of the canonical table
	SkipBackup bool
}

// TransformResult summarizes one transform run
type TransformResult struct {
	Processed      int      `json:"processed"`
	Skipped        int      `json:"skipped"`
	UnmappedValues []string `json:"unmappedValues"`
	SizeMismatches int      `json:"sizeMismatches"`
}

// TransformService projects staged raw records into the canonical product
// SKU table, applying resolved collection mappings. Raw values without a
// MAPPED mapping gate their records out of the canonical catalog; that is an
// expected operational state, not an error.
type TransformService struct {
	rawRepo     repository.RawRepositoryInterface
	catalogRepo repository.CatalogRepositoryInterface
	mappingRepo repository.MappingRepositoryInterface
	mappings    *MappingService
	logger      *logrus.Logger
}

// NewTransformService creates a new transform service
func NewTransformService(
	rawRepo repository.RawRepositoryInterface,
	catalogRepo repository.CatalogRepositoryInterface,
	mappingRepo repository.MappingRepositoryInterface,
	mappings *MappingService,
	logger *logrus.Logger,
) *TransformService {
	return &TransformService{
		rawRepo:     rawRepo,
		catalogRepo: catalogRepo,
		mappingRepo: mappingRepo,
		mappings:    mappings,
		logger:      logger,
	}
}

// Transform projects all staged records through the current mapping state.
// Each base-SKU group is written in its own transaction and only when every
// variant in the group has a mapped collection value, so readers never see a
// product with a partial set of sizes. Gated groups and groups that vanished
// from staging have their canonical rows removed. Running it twice with no
// new data is a no-op.
func (s *TransformService) Transform(ctx context.Context, opts TransformOptions) (*TransformResult, error) {
	records, err := s.rawRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	// Register every raw value and refresh its cached SKU count before
	// loading the mapping state the projection will use.
	counts := make(map[string]int)
	for _, rec := range records {
		if rec.Collection != "" {
			counts[rec.Collection]++
		}
	}
	for rawValue, count := range counts {
		if err := s.mappings.Observe(ctx, rawValue, count); err != nil {
			return nil, err
		}
	}

	allMappings, err := s.mappingRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	mappingByValue := make(map[string]*models.CollectionMapping, len(allMappings))
	for i := range allMappings {
		mappingByValue[allMappings[i].RawValue] = &allMappings[i]
	}

	if !opts.SkipBackup {
		if err := s.catalogRepo.SnapshotBackup(ctx); err != nil {
			return nil, err
		}
	}

	result := &TransformResult{UnmappedValues: []string{}}
	unmappedSet := make(map[string]bool)

	type group struct {
		baseSKU string
		skus    []models.ProductSku
		gated   bool
		size    int
	}
	groups := make(map[string]*group)
	groupOrder := make([]string, 0)

	for _, rec := range records {
		if rec.SKU == "" {
			result.Skipped++
			continue
		}

		parsed := ParseSKU(rec.SKU, rec.SizeOption)
		if parsed.SizeMismatch {
			result.SizeMismatches++
			s.logger.WithFields(logrus.Fields{
				"sku":               rec.SKU,
				"authoritativeSize": rec.SizeOption,
			}).Warn("SKU-derived size disagrees with authoritative size option")
		}

		g, ok := groups[parsed.BaseSKU]
		if !ok {
			g = &group{baseSKU: parsed.BaseSKU}
			groups[parsed.BaseSKU] = g
			groupOrder = append(groupOrder, parsed.BaseSKU)
		}
		g.size++

		mapping := mappingByValue[rec.Collection]
		if rec.Collection == "" || mapping == nil || mapping.Status != models.MappingMapped || mapping.CategoryID == nil {
			if rec.Collection != "" {
				unmappedSet[rec.Collection] = true
			}
			g.gated = true
			continue
		}

		g.skus = append(g.skus, models.ProductSku{
			SKU:               rec.SKU,
			BaseSKU:           parsed.BaseSKU,
			Size:              parsed.Size,
			SizeMismatch:      parsed.SizeMismatch,
			CategoryID:        *mapping.CategoryID,
			Collection:        rec.Collection,
			Title:             rec.Title,
			ProductTitle:      rec.ProductTitle,
			Price:             rec.Price,
			ImageURL:          rec.ImageURL,
			QuantityOnHand:    rec.QuantityOnHand,
			QuantityIncoming:  rec.QuantityIncoming,
			ExternalVariantID: rec.ExternalVariantID,
		})
	}

	for _, baseSKU := range groupOrder {
		g := groups[baseSKU]
		if g.gated {
			// A single unmapped variant holds back the whole group so a
			// product never appears with only some sizes visible. Rows a
			// previous run projected for it are withdrawn too, so an unmap
			// or defer never leaves a stale category buyer-visible.
			if err := s.catalogRepo.ReplaceGroup(ctx, baseSKU, nil); err != nil {
				return nil, err
			}
			result.Skipped += g.size
			continue
		}

		skus := dedupeBySKU(g.skus)
		if err := s.catalogRepo.ReplaceGroup(ctx, baseSKU, skus); err != nil {
			return nil, err
		}
		result.Processed += g.size
	}

	// Groups that disappeared from staging entirely leave the canonical
	// table as well.
	canonicalBases, err := s.catalogRepo.ListBaseSKUs(ctx)
	if err != nil {
		return nil, err
	}
	for _, baseSKU := range canonicalBases {
		if _, ok := groups[baseSKU]; ok {
			continue
		}
		if err := s.catalogRepo.ReplaceGroup(ctx, baseSKU, nil); err != nil {
			return nil, err
		}
	}

	for rawValue := range unmappedSet {
		result.UnmappedValues = append(result.UnmappedValues, rawValue)
	}
	sort.Strings(result.UnmappedValues)

	s.logger.WithFields(logrus.Fields{
		"processed":      result.Processed,
		"skipped":        result.Skipped,
		"unmappedValues": len(result.UnmappedValues),
		"sizeMismatches": result.SizeMismatches,
	}).Info("Transform completed")
	return result, nil
}

// dedupeBySKU collapses duplicate SKU strings inside a group last-write-wins.
// The canonical table is unique on SKU, so duplicates within one upsert batch
// would otherwise fail the write.
func dedupeBySKU(skus []models.ProductSku) []models.ProductSku {
	deduped := make([]models.ProductSku, 0, len(skus))
	seen := make(map[string]int, len(skus))
	for _, sku := range skus {
		if idx, ok := seen[sku.SKU]; ok {
			deduped[idx] = sku
			continue
		}
		seen[sku.SKU] = len(deduped)
		deduped = append(deduped, sku)
	}
	return deduped
}
