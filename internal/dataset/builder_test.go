package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knesset-annotations/catmaset/internal/errors"
)

const (
	protocolDir    = "/data/unpacked_archives/ועדת_הכספים_פרוטוקול_17"
	transcriptText = "ועדת הכספים\nפרוטוקול מס' 42\nThe chair opened the meeting and the budget was approved."
)

func fixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/collection.xml")
	require.NoError(t, err)
	return string(data)
}

// writeProtocol lays out a protocol directory with one transcript and the
// given annotation documents.
func writeProtocol(t *testing.T, fs afero.Fs, dir, text string, documents map[string]string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Join(dir, AnnotationDir), 0o755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "protocol.txt"), []byte(text), 0o644))
	for name, doc := range documents {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, AnnotationDir, name), []byte(doc), 0o644))
	}
}

func expectedFixtureRecords() []Record {
	base := Record{File: "ועדת_הכספים_פרוטוקול_17", Committee: "ועדת הכספים", ProtocolNumber: "42"}
	row := func(seg, labelID, label string, start, end int, text, before, after string) Record {
		r := base
		r.SegmentID, r.LabelID, r.Label = seg, labelID, label
		r.Annotated = seg != ""
		r.Start, r.End = start, end
		r.Text, r.Before, r.After = text, before, after
		return r
	}

	return []Record{
		row("", "", "", 0, 10, "ועדת הכספי", "ועדת ", "הכספים  פר"),
		row("CATMA_SEG_1", "CATMA_LABEL_A", "judicial decision turns turns", 10, 25,
			"ם פרוטוקול מס'", "הכספים  פרוטוקו", "וטוקול מס' 42  "),
		row("CATMA_SEG_2", "CATMA_LABEL_B", "Doubt", 10, 25,
			"ם פרוטוקול מס'", "הכספים  פרוטוקו", "וטוקול מס' 42  "),
		row("", "", "", 25, 30, "42", "ל מס'", "The c"),
		row("CATMA_SEG_3", "CATMA_LABEL_A", "judicial decision turns turns", 30, 42,
			"The chair op", " 42  The cha", "hair opened "),
	}
}

func TestBuildProtocol(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeProtocol(t, fs, protocolDir, transcriptText, map[string]string{"collection.xml": fixture(t)})

	records, err := NewBuilder(fs, WithContextWindows(-5, 5)).BuildProtocol(protocolDir)
	require.NoError(t, err)
	assert.Equal(t, expectedFixtureRecords(), records)
}

func TestBuildProtocolDeduplicatesAcrossDocuments(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	doc := fixture(t)
	writeProtocol(t, fs, protocolDir, transcriptText, map[string]string{
		"a.xml": doc,
		"b.xml": doc,
	})

	records, err := NewBuilder(fs, WithContextWindows(-5, 5)).BuildProtocol(protocolDir)
	require.NoError(t, err)
	assert.Equal(t, expectedFixtureRecords(), records)
}

func TestBuildProtocolSortsEachDocument(t *testing.T) {
	t.Parallel()

	second := `<TEI><teiHeader><encodingDesc>
  <fsDecl type="L"><fsDescr>Judicial decision</fsDescr></fsDecl>
</encodingDesc></teiHeader><text>
  <seg ana="#S9"><ptr target="x#char=50,55"/></seg>
  <ptr target="x#char=2,4"/>
  <fs xml:id="S9" type="L"/>
</text></TEI>`

	fs := afero.NewMemMapFs()
	writeProtocol(t, fs, protocolDir, transcriptText, map[string]string{
		"a.xml": fixture(t),
		"b.xml": second,
	})

	records, err := NewBuilder(fs).BuildProtocol(protocolDir)
	require.NoError(t, err)
	require.Len(t, records, 7)

	var starts []int
	for _, r := range records {
		starts = append(starts, r.Start)
	}
	// documents are concatenated in name order, each sorted on its own
	assert.Equal(t, []int{0, 10, 10, 25, 30, 2, 50}, starts)
}

func TestBuildProtocolWithoutDocuments(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeProtocol(t, fs, protocolDir, transcriptText, nil)

	records, err := NewBuilder(fs).BuildProtocol(protocolDir)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBuildProtocolTranscriptCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T, fs afero.Fs)
	}{
		{
			name: "no transcript",
			setup: func(t *testing.T, fs afero.Fs) {
				require.NoError(t, fs.Remove(filepath.Join(protocolDir, "protocol.txt")))
			},
		},
		{
			name: "two transcripts",
			setup: func(t *testing.T, fs afero.Fs) {
				require.NoError(t, afero.WriteFile(fs, filepath.Join(protocolDir, "copy.txt"), []byte("x"), 0o644))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			writeProtocol(t, fs, protocolDir, transcriptText, map[string]string{"c.xml": fixture(t)})
			tt.setup(t, fs)

			_, err := NewBuilder(fs).BuildProtocol(protocolDir)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryMissingArtifact), "got %v", err)
		})
	}
}

func TestBuildProtocolProvenance(t *testing.T) {
	t.Parallel()

	t.Run("directory fallback", func(t *testing.T) {
		t.Parallel()

		fs := afero.NewMemMapFs()
		text := strings.Replace(transcriptText, "פרוטוקול מס' 42", "פרוטוקול ישיבה", 1)
		writeProtocol(t, fs, protocolDir, text, map[string]string{"c.xml": fixture(t)})

		records, err := NewBuilder(fs).BuildProtocol(protocolDir)
		require.NoError(t, err)
		require.NotEmpty(t, records)
		for _, r := range records {
			assert.Equal(t, "17", r.ProtocolNumber)
		}
	})

	t.Run("missing committee", func(t *testing.T) {
		t.Parallel()

		fs := afero.NewMemMapFs()
		text := strings.Replace(transcriptText, "ועדת", "ישיבת", 1)
		writeProtocol(t, fs, protocolDir, text, map[string]string{"c.xml": fixture(t)})

		_, err := NewBuilder(fs).BuildProtocol(protocolDir)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryMissingProvenance))
		assert.Contains(t, err.Error(), "ועדת_הכספים_פרוטוקול_17")
	})
}

type stubResolver struct{}

func (stubResolver) ResolveCommittee(string) (string, error) { return "Finance", nil }

func (stubResolver) ResolveProtocolNumber(string, string) (string, error) { return "7", nil }

func TestBuildProtocolWithResolver(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeProtocol(t, fs, protocolDir, transcriptText, map[string]string{"c.xml": fixture(t)})

	records, err := NewBuilder(fs, WithResolver(stubResolver{})).BuildProtocol(protocolDir)
	require.NoError(t, err)
	for _, r := range records {
		assert.Equal(t, "Finance", r.Committee)
		assert.Equal(t, "7", r.ProtocolNumber)
	}
}

func TestBuildProtocolInconsistentDocument(t *testing.T) {
	t.Parallel()

	broken := strings.Replace(fixture(t), `<fs xml:id="CATMA_SEG_3" type="CATMA_LABEL_A"/>`, "", 1)

	fs := afero.NewMemMapFs()
	writeProtocol(t, fs, protocolDir, transcriptText, map[string]string{"c.xml": broken})

	_, err := NewBuilder(fs).BuildProtocol(protocolDir)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryInconsistentDocument))
	assert.Contains(t, err.Error(), "CATMA_SEG_3")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Parallel()

	doc := fixture(t)
	fs := afero.NewMemMapFs()
	writeProtocol(t, fs, protocolDir, transcriptText, map[string]string{
		"a.xml": doc,
		"b.xml": strings.Replace(doc, "char=30,42", "char=30", 1),
		"c.xml": strings.Replace(doc, `<fs xml:id="CATMA_SEG_3" type="CATMA_LABEL_A"/>`, "", 1),
	})

	errs := NewBuilder(fs).Validate(protocolDir)
	require.Len(t, errs, 2)
	assert.True(t, errors.IsCategory(errs[0], errors.CategoryMalformedPointer))
	assert.True(t, errors.IsCategory(errs[1], errors.CategoryInconsistentDocument))

	errs = NewBuilder(fs).Validate(filepath.Join(filepath.Dir(protocolDir), "missing"))
	require.Len(t, errs, 1)
	assert.True(t, errors.IsCategory(errs[0], errors.CategoryMissingArtifact))
}
