package pipeline

import (
	"context"
	"log/slog"

	"github.com/gidroatlas/atlas-service/internal/domain"
)

// Catalog is the part of the catalog the extractor drives.
type Catalog interface {
	LoadDictionaries(ctx context.Context) error
	Refresh(ctx context.Context, criteria domain.Criteria) error
	Objects() []domain.WaterObject
}

// CatalogExtractor implements Extractor by refreshing a catalog with no
// criteria. Dictionary failures are logged and the sync continues with
// placeholder names.
type CatalogExtractor struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewExtractor creates a CatalogExtractor.
func NewExtractor(catalog Catalog, logger *slog.Logger) *CatalogExtractor {
	return &CatalogExtractor{catalog: catalog, logger: logger}
}

func (e *CatalogExtractor) Extract(ctx context.Context) ([]domain.WaterObject, error) {
	if err := e.catalog.LoadDictionaries(ctx); err != nil {
		e.logger.Warn("continuing sync without fresh dictionaries", "error", err)
	}
	if err := e.catalog.Refresh(ctx, domain.Criteria{}); err != nil {
		return nil, err
	}
	return e.catalog.Objects(), nil
}
