// Package dataset turns protocol directories into flat annotation records
// and assembles them into the corpus table.
package dataset

import "strconv"

// Columns is the output header, without the leading row index column.
var Columns = []string{
	"text_segment_catma_id",
	"label_catma_id",
	"label",
	"start_char",
	"end_char",
	"file",
	"committee",
	"protocol_number",
	"text",
	"before_text_context",
	"after_text_context",
}

// Record is one row of a protocol table. Unannotated rows have Annotated set
// to false and empty segment and label fields. Record is comparable and is
// used directly as a dedup key.
type Record struct {
	SegmentID      string
	LabelID        string
	Label          string
	Annotated      bool
	Start          int
	End            int
	File           string
	Committee      string
	ProtocolNumber string
	Text           string
	Before         string
	After          string
}

// Values returns the record's fields in Columns order.
func (r *Record) Values() []string {
	return []string{
		r.SegmentID,
		r.LabelID,
		r.Label,
		strconv.Itoa(r.Start),
		strconv.Itoa(r.End),
		r.File,
		r.Committee,
		r.ProtocolNumber,
		r.Text,
		r.Before,
		r.After,
	}
}

// Row is a corpus record with its row index.
type Row struct {
	Index int
	Record
}

// Dedup drops records identical to an earlier one, keeping the first.
func Dedup(records []Record) []Record {
	seen := make(map[Record]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
