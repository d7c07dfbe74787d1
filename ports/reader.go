package ports

import (
	"tumorexpr/domain/dataset"
)

// TableReader loads one raw input table (metadata or expression matrix)
type TableReader interface {
	ReadTable() (*dataset.RawTable, error)
}
