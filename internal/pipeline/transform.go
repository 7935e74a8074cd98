package pipeline

import (
	"context"
	"log/slog"

	"github.com/gidroatlas/atlas-service/internal/domain"
)

// ObjectTransformer implements Transformer by serializing objects into
// sink-topic events.
type ObjectTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates an ObjectTransformer.
func NewTransformer(logger *slog.Logger) *ObjectTransformer {
	return &ObjectTransformer{logger: logger}
}

func (t *ObjectTransformer) Transform(_ context.Context, obj domain.WaterObject) (domain.OutputEvent, error) {
	return domain.SerializeWaterObject(obj)
}
