package ports

import (
	"context"

	"tumorexpr/domain/run"
)

// ArtifactWriter writes a report's tables and rendered documents somewhere
// durable and returns the locations it wrote
type ArtifactWriter interface {
	WriteReport(ctx context.Context, report *run.Report) ([]string, error)
}
