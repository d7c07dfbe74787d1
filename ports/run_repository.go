package ports

import (
	"context"

	"tumorexpr/domain/core"
	"tumorexpr/domain/run"
)

// RunRepository persists completed analysis runs. Stored reports omit the
// merged table.
type RunRepository interface {
	Save(ctx context.Context, report *run.Report) error
	GetByID(ctx context.Context, id core.RunID) (*run.Report, error)
	List(ctx context.Context, limit, offset int) ([]run.Summary, error)
}
