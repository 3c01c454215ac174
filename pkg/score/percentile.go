package score

import "sort"

// PercentileRow maps an inclusive interaction lower bound to a bucket.
// Top is the bucket's share of creators; smaller is better.
type PercentileRow struct {
	LowerBound int64   `json:"lower_bound" yaml:"lowerBound"`
	Top        float64 `json:"top" yaml:"top"`
	Label      string  `json:"label" yaml:"label"`
}

// PercentileTable is ordered ascending by LowerBound.
type PercentileTable []PercentileRow

// Percentile returns the bucket for the total interaction count.
func Percentile(interactions int64, table PercentileTable) PercentileRow {
	if len(table) == 0 {
		return PercentileRow{Top: 100, Label: "top 100%"}
	}
	if interactions < 0 {
		interactions = 0
	}
	i := sort.Search(len(table), func(i int) bool { return table[i].LowerBound > interactions }) - 1
	if i < 0 {
		i = 0
	}
	return table[i]
}

// PercentileLabel returns the human-readable bucket label.
func PercentileLabel(interactions int64, table PercentileTable) string {
	return Percentile(interactions, table).Label
}
