package output

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/knesset-annotations/catmaset/internal/dataset"
	"github.com/knesset-annotations/catmaset/internal/errors"
)

func sampleRows() []dataset.Row {
	return []dataset.Row{
		{Index: 0, Record: dataset.Record{
			Start: 0, End: 10, File: "protocol_17", Committee: "ועדת הכספים", ProtocolNumber: "42",
			Text: "ועדת הכספי", Before: "ועדת ", After: "הכספים  פר",
		}},
		{Index: 3, Record: dataset.Record{
			SegmentID: "CATMA_SEG_1", LabelID: "CATMA_LABEL_A", Label: "Judicial decision", Annotated: true,
			Start: 10, End: 25, File: "protocol_17", Committee: "ועדת הכספים", ProtocolNumber: "42",
			Text: "said \"no\", twice", Before: "a\tb", After: "",
		}},
	}
}

func TestResolveFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format  string
		path    string
		want    Format
		wantErr bool
	}{
		{"auto", "out/dataset.tsv", FormatTSV, false},
		{"auto", "out/dataset.CSV", FormatCSV, false},
		{"auto", "out/dataset.xlsx", FormatXLSX, false},
		{"auto", "out/dataset", FormatTSV, false},
		{"", "out/dataset.csv", FormatCSV, false},
		{"xlsx", "out/dataset.tsv", FormatXLSX, false},
		{" TSV ", "out/dataset.csv", FormatTSV, false},
		{"parquet", "out/dataset.parquet", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format+"_"+tt.path, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveFormat(tt.format, tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteTSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTSV, sampleRows()))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "\ttext_segment_catma_id\tlabel_catma_id\tlabel\tstart_char\tend_char\tfile\tcommittee\tprotocol_number\ttext\tbefore_text_context\tafter_text_context", lines[0])
	assert.Equal(t, "0\t\t\t\t0\t10\tprotocol_17\tועדת הכספים\t42\tועדת הכספי\tועדת \tהכספים  פר", lines[1])

	r := csv.NewReader(bytes.NewReader(buf.Bytes()))
	r.Comma = '\t'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "3", records[2][0])
	assert.Equal(t, `said "no", twice`, records[2][9])
	assert.Equal(t, "a\tb", records[2][10])
	assert.Empty(t, records[2][11])
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header(), records[0])
	assert.Equal(t, "CATMA_SEG_1", records[2][1])
	assert.Equal(t, `said "no", twice`, records[2][9])
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleRows()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, dataset.Columns, rows[0][1:])
	assert.Equal(t, "3", rows[2][0])
	assert.Equal(t, "Judicial decision", rows[2][3])
	assert.Equal(t, "25", rows[2][5])
	assert.Equal(t, "ועדת הכספים", rows[2][7])
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	w := NewWriter(fs)

	format, err := w.WriteFile("/out/nested/dataset.tsv", "auto", sampleRows())
	require.NoError(t, err)
	assert.Equal(t, FormatTSV, format)

	data, err := afero.ReadFile(fs, "/out/nested/dataset.tsv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\ttext_segment_catma_id\t"))

	entries, err := afero.ReadDir(fs, "/out/nested")
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")
	assert.Equal(t, "dataset.tsv", entries[0].Name())
}

func TestWriteFileReplacesExisting(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/dataset.csv", []byte("old"), 0o644))

	_, err := NewWriter(fs).WriteFile("/out/dataset.csv", "auto", nil)
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/out/dataset.csv")
	require.NoError(t, err)
	assert.Equal(t, strings.Join(Header(), ",")+"\n", string(data))
}

func TestWriteFileRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	_, err := NewWriter(fs).WriteFile("/out/dataset.tsv", "json", sampleRows())
	require.Error(t, err)

	exists, err := afero.Exists(fs, "/out/dataset.tsv")
	require.NoError(t, err)
	assert.False(t, exists)
}
