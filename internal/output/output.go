// Package output writes the corpus table as TSV, CSV or XLSX.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"github.com/knesset-annotations/catmaset/internal/dataset"
	"github.com/knesset-annotations/catmaset/internal/errors"
	"github.com/knesset-annotations/catmaset/internal/logger"
)

// Format is an output table format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatTSV  Format = "tsv"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet holding the table in XLSX output.
const SheetName = "dataset"

const filePermissions = 0o644

// ResolveFormat returns the concrete format for path. With auto (or an empty
// format) the file extension decides, defaulting to TSV.
func ResolveFormat(format, path string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(format)))
	switch f {
	case FormatTSV, FormatCSV, FormatXLSX:
		return f, nil
	case FormatAuto, "":
	default:
		return "", errors.Newf("unsupported output format %q", format).
			Component("output").
			Category(errors.CategoryValidation).
			Build()
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return FormatTSV, nil
	}
}

// Header returns the table header: an unnamed index column then dataset.Columns.
func Header() []string {
	return append([]string{""}, dataset.Columns...)
}

// Write encodes rows to w in the given format.
func Write(w io.Writer, format Format, rows []dataset.Row) error {
	switch format {
	case FormatTSV:
		return writeDelimited(w, '\t', rows)
	case FormatCSV:
		return writeDelimited(w, ',', rows)
	case FormatXLSX:
		return writeXLSX(w, rows)
	default:
		return errors.Newf("cannot encode format %q", format).
			Component("output").
			Category(errors.CategoryValidation).
			Build()
	}
}

func writeDelimited(w io.Writer, comma rune, rows []dataset.Row) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma

	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, 0, len(dataset.Columns)+1)
	for i := range rows {
		record = append(record[:0], strconv.Itoa(rows[i].Index))
		record = append(record, rows[i].Values()...)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rows[i].Index, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, rows []dataset.Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name worksheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open worksheet stream: %w", err)
	}

	header := Header()
	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := sw.SetRow("A1", headerCells); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range rows {
		r := &rows[i]
		cells := []any{
			r.Index,
			r.SegmentID,
			r.LabelID,
			r.Label,
			r.Start,
			r.End,
			r.File,
			r.Committee,
			r.ProtocolNumber,
			r.Text,
			r.Before,
			r.After,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r.Index, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush worksheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Writer writes tables to files on a filesystem.
type Writer struct {
	fs afero.Fs
}

// NewWriter returns a Writer for fs.
func NewWriter(fs afero.Fs) *Writer {
	return &Writer{fs: fs}
}

// WriteFile writes rows to path. The table goes to a temporary file in the
// destination directory first and is renamed into place, so a failed run
// never leaves a partial table behind.
func (w *Writer) WriteFile(path, format string, rows []dataset.Row) (Format, error) {
	start := time.Now()

	resolved, err := ResolveFormat(format, path)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fileError(fmt.Errorf("failed to create output directory: %w", err), path)
	}

	tmp, err := afero.TempFile(w.fs, dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return "", fileError(fmt.Errorf("failed to create temporary file: %w", err), path)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = w.fs.Remove(tmpPath)
		}
	}()

	if err := Write(tmp, resolved, rows); err != nil {
		return "", fileError(err, path)
	}
	if err := tmp.Sync(); err != nil {
		return "", fileError(fmt.Errorf("failed to sync file: %w", err), path)
	}
	if err := tmp.Close(); err != nil {
		return "", fileError(fmt.Errorf("failed to close temporary file: %w", err), path)
	}
	if err := w.fs.Chmod(tmpPath, filePermissions); err != nil {
		return "", fileError(fmt.Errorf("failed to set file permissions: %w", err), path)
	}
	if err := w.fs.Rename(tmpPath, path); err != nil {
		return "", fileError(fmt.Errorf("failed to rename temporary file: %w", err), path)
	}
	success = true

	GetLogger().Info("table written",
		logger.String("path", path),
		logger.String("format", string(resolved)),
		logger.Int("rows", len(rows)),
		logger.Duration("elapsed", time.Since(start)))

	return resolved, nil
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("output").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Build()
}
