package dataset

import (
	"golang.org/x/text/unicode/norm"

	"github.com/knesset-annotations/catmaset/internal/logger"
)

// LabelPolicy is the corpus-level label normalization.
type LabelPolicy struct {
	Rename  map[string]string // raw label text to canonical label text
	Exclude []string          // canonical labels whose rows are dropped
}

// normalizer applies a LabelPolicy to NFC-normalized labels.
type normalizer struct {
	rename  map[string]string
	exclude map[string]struct{}
}

func newNormalizer(policy LabelPolicy) *normalizer {
	n := &normalizer{
		rename:  make(map[string]string, len(policy.Rename)),
		exclude: make(map[string]struct{}, len(policy.Exclude)),
	}
	for from, to := range policy.Rename {
		n.rename[norm.NFC.String(from)] = norm.NFC.String(to)
	}
	for _, label := range policy.Exclude {
		n.exclude[norm.NFC.String(label)] = struct{}{}
	}
	return n
}

func (n *normalizer) label(raw string) string {
	label := norm.NFC.String(raw)
	if canonical, ok := n.rename[label]; ok {
		return canonical
	}
	return label
}

func (n *normalizer) excluded(r *Record) bool {
	if !r.Annotated {
		return false
	}
	_, ok := n.exclude[r.Label]
	return ok
}

// Assemble concatenates protocol tables in order, drops duplicate rows,
// numbers the remaining rows, renames labels and finally drops rows with an
// excluded label. Row indexes are assigned before filtering, so dropped rows
// leave gaps.
func Assemble(tables [][]Record, policy LabelPolicy) []Row {
	var all []Record
	for _, t := range tables {
		all = append(all, t...)
	}
	unique := Dedup(all)

	n := newNormalizer(policy)
	rows := make([]Row, 0, len(unique))
	excluded := 0
	for i, r := range unique {
		if r.Annotated {
			r.Label = n.label(r.Label)
		}
		if n.excluded(&r) {
			excluded++
			continue
		}
		rows = append(rows, Row{Index: i, Record: r})
	}

	GetLogger().Debug("assembled corpus",
		logger.Int("records", len(all)),
		logger.Int("duplicates", len(all)-len(unique)),
		logger.Int("excluded", excluded),
		logger.Int("rows", len(rows)))

	return rows
}
