package insight

import (
	"context"

	"github.com/devlog-tools/logsync/internal/core/model"
)

// FallbackGenerator is the surface the sync cycle drives: it always yields
// a record, degrading to raw pass-through when generation fails.
type FallbackGenerator interface {
	GenerateWithFallback(ctx context.Context, batch Batch) (rec model.InsightRecord, degraded bool)
}

// Passthrough emits raw records without calling any service. Used when no
// generator endpoint is configured and in dry runs. Its records are Raw but
// not degraded; degradation means a configured service failed.
type Passthrough struct{}

// GenerateWithFallback returns the batch's raw pass-through record.
func (Passthrough) GenerateWithFallback(_ context.Context, batch Batch) (model.InsightRecord, bool) {
	return batch.RawRecord(), false
}
