// Package metrics provides constants used across metric definitions.
package metrics

// Operation names recorded by the pipeline.
const (
	// OpUnpack is corpus archive extraction.
	OpUnpack = "unpack"
	// OpDiscover is protocol directory classification.
	OpDiscover = "discover"
	// OpProtocol is building the table of one protocol directory.
	OpProtocol = "protocol"
	// OpValidate is checking one protocol directory without building rows.
	OpValidate = "validate"
	// OpAssemble is corpus dedup, normalization and filtering.
	OpAssemble = "assemble"
	// OpWrite is writing the output table.
	OpWrite = "write"
)

// Status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Row kinds.
const (
	RowAnnotated   = "annotated"
	RowUnannotated = "unannotated"
)
