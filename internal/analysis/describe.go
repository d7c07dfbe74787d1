package analysis

import (
	"tumorexpr/adapters/datareadiness/coercer"
	"tumorexpr/domain/dataset"
	"tumorexpr/domain/stats"

	mstats "github.com/montanaflynn/stats"
)

// Describe summarises every numeric column of the merged table: count, mean,
// sample standard deviation, min, quartiles and max over non-missing values.
// Text columns whose every non-missing cell parses as a number count as
// numeric.
func Describe(table *dataset.Table, c *coercer.TypeCoercer) stats.SummaryStatistics {
	if c == nil {
		c = coercer.Default()
	}

	var summary stats.SummaryStatistics
	for _, col := range table.Columns() {
		if c.InferType(col) != dataset.TypeNumeric {
			continue
		}
		values, _ := c.Numeric(col)
		summary.Columns = append(summary.Columns, describeColumn(col.Name, finite(values)))
	}
	return summary
}

func describeColumn(name string, data []float64) stats.ColumnSummary {
	s := stats.ColumnSummary{
		Column: name,
		Count:  len(data),
		Mean:   stats.NaN(),
		Std:    stats.NaN(),
		Min:    stats.NaN(),
		Q25:    stats.NaN(),
		Median: stats.NaN(),
		Q75:    stats.NaN(),
		Max:    stats.NaN(),
	}
	if len(data) == 0 {
		return s
	}

	mean, _ := mstats.Mean(data)
	min, _ := mstats.Min(data)
	max, _ := mstats.Max(data)
	median, _ := mstats.Median(data)
	s.Mean = stats.Float(mean)
	s.Min = stats.Float(min)
	s.Max = stats.Float(max)
	s.Median = stats.Float(median)

	if len(data) > 1 {
		std, _ := mstats.StandardDeviationSample(data)
		s.Std = stats.Float(std)
	}

	s.Q25 = stats.Float(stats.Quantile(data, 0.25))
	s.Q75 = stats.Float(stats.Quantile(data, 0.75))
	return s
}

// summarizeGroup builds the per-group description used in reports
func summarizeGroup(group, label string, values []float64) stats.GroupSummary {
	mean, _ := mstats.Mean(values)
	median, _ := mstats.Median(values)
	min, _ := mstats.Min(values)
	max, _ := mstats.Max(values)
	return stats.GroupSummary{
		Group:  group,
		Label:  label,
		N:      len(values),
		Mean:   mean,
		Median: median,
		Min:    min,
		Max:    max,
	}
}
