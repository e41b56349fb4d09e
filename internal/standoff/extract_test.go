package standoff

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knesset-annotations/catmaset/internal/errors"
)

// teiDoc wraps header and text fragments in a minimal CATMA TEI document.
func teiDoc(encodingDesc, text string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<TEI xmlns="http://www.tei-c.org/ns/1.0">
  <teiHeader>` + encodingDesc + `</teiHeader>
  ` + text + `
</TEI>`
}

const oneLabel = `<encodingDesc><fsdDecl>
  <fsDecl type="L1"><fsDescr>Judicial decision</fsDescr></fsDecl>
</fsdDecl></encodingDesc>`

func parseString(t *testing.T, doc string) (*Document, error) {
	t.Helper()
	return Parse(strings.NewReader(doc))
}

func TestParseFixture(t *testing.T) {
	t.Parallel()

	f, err := os.Open("testdata/collection.xml")
	require.NoError(t, err)
	defer f.Close()

	doc, err := Parse(f)
	require.NoError(t, err)

	assert.Equal(t, []LabelDefinition{
		{ID: "CATMA_LABEL_A", Text: "judicial decision turns turns"},
		{ID: "CATMA_LABEL_B", Text: "Doubt"},
	}, doc.Labels)

	assert.Equal(t, []Assignment{
		{SegmentID: "CATMA_SEG_1", LabelID: "CATMA_LABEL_A"},
		{SegmentID: "CATMA_SEG_2", LabelID: "CATMA_LABEL_B"},
		{SegmentID: "CATMA_SEG_3", LabelID: "CATMA_LABEL_A"},
	}, doc.Assignments)

	assert.Equal(t, []Span{
		{SegmentID: "CATMA_SEG_1", Start: 10, End: 25},
		{SegmentID: "CATMA_SEG_2", Start: 10, End: 25},
		{SegmentID: "CATMA_SEG_3", Start: 30, End: 42},
	}, doc.Spans)

	assert.Equal(t, []UnannotatedSpan{
		{Start: 0, End: 10},
		{Start: 25, End: 30},
	}, doc.Unannotated)

	text, ok := doc.LabelText("CATMA_LABEL_B")
	assert.True(t, ok)
	assert.Equal(t, "Doubt", text)
	_, ok = doc.LabelText("missing")
	assert.False(t, ok)
}

func TestParseFileRecordsPath(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile("testdata/collection.xml")
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	path := "/corpus/p1/annotationcollections/a.xml"
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))

	doc, err := ParseFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path)

	_, err = ParseFile(fs, "/corpus/p1/annotationcollections/gone.xml")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMissingArtifact))
}

func TestSegmentWithNIdsEmitsNSpans(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 5} {
		ids := make([]string, n)
		var fss strings.Builder
		for i := range ids {
			ids[i] = "#S" + string(rune('a'+i))
			fss.WriteString(`<fs xml:id="S` + string(rune('a'+i)) + `" type="L1"/>`)
		}
		doc, err := parseString(t, teiDoc(oneLabel, `<text><ab>
			<seg ana="`+strings.Join(ids, " ")+`"><ptr target="x#char=3,9"/></seg>
		</ab>`+fss.String()+`</text>`))
		require.NoError(t, err)

		require.Len(t, doc.Spans, n)
		for _, s := range doc.Spans {
			assert.Equal(t, 3, s.Start)
			assert.Equal(t, 9, s.End)
		}
	}
}

func TestCrossCheckMismatch(t *testing.T) {
	t.Parallel()

	doc := teiDoc(oneLabel, `<text><ab>
		<seg ana="#S1 #S2"><ptr target="x#char=0,4"/></seg>
	</ab>
	<fs xml:id="S1" type="L1"/>
	<fs xml:id="S3" type="L1"/>
	</text>`)

	_, err := parseString(t, doc)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryInconsistentDocument))

	var mismatch *SegmentMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"S3"}, mismatch.OnlyAssigned)
	assert.Equal(t, []string{"S2"}, mismatch.OnlyReferenced)
	assert.Contains(t, err.Error(), "assigned without span: [S3]")
	assert.Contains(t, err.Error(), "spanned without assignment: [S2]")
}

func TestCrossCheckDirect(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CrossCheck(nil, nil))
	assert.NoError(t, CrossCheck(
		[]Assignment{{SegmentID: "a", LabelID: "L"}},
		[]Span{{SegmentID: "a", Start: 0, End: 1}, {SegmentID: "a", Start: 5, End: 6}}))

	err := CrossCheck([]Assignment{{SegmentID: "a"}}, nil)
	var mismatch *SegmentMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"a"}, mismatch.OnlyAssigned)
	assert.Empty(t, mismatch.OnlyReferenced)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	validText := `<text><ab><seg ana="#S1"><ptr target="x#char=0,4"/></seg></ab><fs xml:id="S1" type="L1"/></text>`

	tests := []struct {
		name     string
		doc      string
		category errors.ErrorCategory
		contains string
	}{
		{
			name:     "no text element",
			doc:      teiDoc(oneLabel, ""),
			category: errors.CategoryInconsistentDocument,
			contains: "exactly one text",
		},
		{
			name:     "two text elements",
			doc:      teiDoc(oneLabel, validText+`<text/>`),
			category: errors.CategoryInconsistentDocument,
			contains: "found 2",
		},
		{
			name:     "no encodingDesc",
			doc:      teiDoc("", validText),
			category: errors.CategoryInconsistentDocument,
			contains: "exactly one encodingDesc",
		},
		{
			name: "duplicate label id",
			doc: teiDoc(`<encodingDesc>
				<fsDecl type="L1"><fsDescr>a</fsDescr></fsDecl>
				<fsDecl type="L1"><fsDescr>b</fsDescr></fsDecl>
			</encodingDesc>`, validText),
			category: errors.CategoryInconsistentDocument,
			contains: "declared more than once",
		},
		{
			name:     "label without description",
			doc:      teiDoc(`<encodingDesc><fsDecl type="L1"/></encodingDesc>`, validText),
			category: errors.CategoryInconsistentDocument,
			contains: "0 fsDescr",
		},
		{
			name: "label with two descriptions",
			doc: teiDoc(`<encodingDesc><fsDecl type="L1">
				<fsDescr>a</fsDescr><fsDescr>b</fsDescr>
			</fsDecl></encodingDesc>`, validText),
			category: errors.CategoryInconsistentDocument,
			contains: "2 fsDescr",
		},
		{
			name: "duplicate segment assignment",
			doc: teiDoc(oneLabel, `<text><ab><seg ana="#S1"><ptr target="x#char=0,4"/></seg></ab>
				<fs xml:id="S1" type="L1"/><fs xml:id="S1" type="L1"/></text>`),
			category: errors.CategoryInconsistentDocument,
			contains: "more than one label assignment",
		},
		{
			name:     "seg without ids",
			doc:      teiDoc(oneLabel, `<text><ab><seg ana=" # "><ptr target="x#char=0,4"/></seg></ab></text>`),
			category: errors.CategoryInconsistentDocument,
			contains: "no segment ids",
		},
		{
			name: "seg with two pointers",
			doc: teiDoc(oneLabel, `<text><ab><seg ana="#S1"><ptr target="x#char=0,4"/><ptr target="x#char=4,8"/></seg></ab>
				<fs xml:id="S1" type="L1"/></text>`),
			category: errors.CategoryInconsistentDocument,
			contains: "2 ptr",
		},
		{
			name:     "malformed annotated pointer",
			doc:      teiDoc(oneLabel, `<text><ab><seg ana="#S1"><ptr target="x#chars=0"/></seg></ab><fs xml:id="S1" type="L1"/></text>`),
			category: errors.CategoryMalformedPointer,
			contains: "malformed pointer",
		},
		{
			name:     "malformed unannotated pointer",
			doc:      teiDoc(oneLabel, `<text><ab><ptr target="x#line=0,4"/></ab></text>`),
			category: errors.CategoryMalformedPointer,
			contains: "x#line=0,4",
		},
		{
			name:     "undeclared label",
			doc:      teiDoc(oneLabel, `<text><ab><seg ana="#S1"><ptr target="x#char=0,4"/></seg></ab><fs xml:id="S1" type="L9"/></text>`),
			category: errors.CategoryInconsistentDocument,
			contains: "undeclared label",
		},
		{
			name:     "broken xml",
			doc:      `<TEI><text></TEI>`,
			category: errors.CategoryInconsistentDocument,
			contains: "XML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := parseString(t, tt.doc)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got category %s", errors.CategoryOf(err))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestPointerTargetUsesLastCharRange(t *testing.T) {
	t.Parallel()

	doc, err := parseString(t, teiDoc(oneLabel, `<text><ab>
		<ptr target="catma://doc#char=1,2/char=40,45"/>
	</ab></text>`))
	require.NoError(t, err)
	assert.Equal(t, []UnannotatedSpan{{Start: 40, End: 45}}, doc.Unannotated)
}

func TestLabelTextIncludesNestedCharacterData(t *testing.T) {
	t.Parallel()

	doc, err := parseString(t, teiDoc(`<encodingDesc>
		<fsDecl type="L1"><fsDescr>Anticipating <hi>Judicial</hi> Review turns</fsDescr></fsDecl>
	</encodingDesc>`, `<text/>`))
	require.NoError(t, err)
	assert.Equal(t, "Anticipating Judicial Review turns", doc.Labels[0].Text)
}

func TestEmptyAnaCountsAsAnnotatedParent(t *testing.T) {
	t.Parallel()

	// A ptr inside a seg with an empty ana is neither unannotated nor a valid span.
	_, err := parseString(t, teiDoc(oneLabel, `<text><ab><seg ana=""><ptr target="x#char=0,4"/></seg></ab></text>`))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryInconsistentDocument))
}
