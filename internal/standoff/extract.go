// Package standoff extracts labels, label assignments and character-offset
// spans from CATMA TEI standoff annotation collections.
package standoff

import (
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/knesset-annotations/catmaset/internal/errors"
	"github.com/knesset-annotations/catmaset/internal/logger"
)

// charRangePattern takes the last char=S,E of a pointer target.
var charRangePattern = regexp.MustCompile(`(?s)^.*char=(\d+),(\d+)`)

// LabelDefinition is a label declared in the document's encoding description.
type LabelDefinition struct {
	ID   string
	Text string
}

// Assignment maps an annotated segment to the label assigned to it.
type Assignment struct {
	SegmentID string
	LabelID   string
}

// Span is the half-open character range [Start, End) of an annotated segment.
type Span struct {
	SegmentID string
	Start     int
	End       int
}

// UnannotatedSpan is a character range that carries no label.
type UnannotatedSpan struct {
	Start int
	End   int
}

// Document is everything extracted from one annotation collection.
type Document struct {
	Path        string
	Labels      []LabelDefinition // in declaration order
	Assignments []Assignment      // in document order
	Spans       []Span
	Unannotated []UnannotatedSpan
}

// LabelText returns the text of a declared label.
func (d *Document) LabelText(labelID string) (string, bool) {
	for _, l := range d.Labels {
		if l.ID == labelID {
			return l.Text, true
		}
	}
	return "", false
}

// ParseFile reads and extracts one annotation collection from fs.
func ParseFile(fs afero.Fs, path string) (*Document, error) {
	start := time.Now()

	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("annotation document vanished: %w", err)).
			Component("standoff").
			Category(errors.CategoryMissingArtifact).
			Context("document", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path

	GetLogger().Debug("extracted annotation document",
		logger.String("document", path),
		logger.Int("labels", len(doc.Labels)),
		logger.Int("assignments", len(doc.Assignments)),
		logger.Int("spans", len(doc.Spans)),
		logger.Int("unannotated", len(doc.Unannotated)),
		logger.Duration("elapsed", time.Since(start)))

	return doc, nil
}

// Parse extracts labels, assignments and spans from one annotation document
// and checks that assignments and spans reference the same segment ids.
func Parse(r io.Reader) (*Document, error) {
	tree, err := Decode(r)
	if err != nil {
		return nil, errors.New(err).
			Component("standoff").
			Category(errors.CategoryInconsistentDocument).
			Context("operation", "decode_xml").
			Build()
	}
	return Extract(tree)
}

// Extract runs every extraction step over a decoded tree.
func Extract(tree *Tree) (*Document, error) {
	assignments, err := tree.Assignments()
	if err != nil {
		return nil, err
	}
	labels, err := tree.LabelDefinitions()
	if err != nil {
		return nil, err
	}
	spans, err := tree.AnnotatedSpans()
	if err != nil {
		return nil, err
	}
	unannotated, err := tree.UnannotatedSpans()
	if err != nil {
		return nil, err
	}

	if err := CrossCheck(assignments, spans); err != nil {
		return nil, err
	}

	doc := &Document{
		Labels:      labels,
		Assignments: assignments,
		Spans:       spans,
		Unannotated: unannotated,
	}

	for _, a := range assignments {
		if _, ok := doc.LabelText(a.LabelID); !ok {
			return nil, inconsistent("segment %q is assigned undeclared label %q", a.SegmentID, a.LabelID).
				Context("segment_id", a.SegmentID).
				Context("label_id", a.LabelID).
				Build()
		}
	}

	return doc, nil
}

// single returns the only element named name in the document.
func (t *Tree) single(name string) (*element, error) {
	found := t.root.findAllInclusive(name)
	if len(found) != 1 {
		return nil, inconsistent("expected exactly one %s element, found %d", name, len(found)).
			Context("element", name).
			Context("count", len(found)).
			Build()
	}
	return found[0], nil
}

// LabelDefinitions maps every fsDecl under encodingDesc to its fsDescr text.
func (t *Tree) LabelDefinitions() ([]LabelDefinition, error) {
	encodingDesc, err := t.single("encodingDesc")
	if err != nil {
		return nil, err
	}

	var labels []LabelDefinition
	seen := make(map[string]bool)
	for _, decl := range encodingDesc.findAll("fsDecl") {
		labelID, _ := decl.attr("type")

		descriptions := decl.findAll("fsDescr")
		if len(descriptions) != 1 {
			return nil, inconsistent("label %q has %d fsDescr elements, expected 1", labelID, len(descriptions)).
				Context("label_id", labelID).
				Build()
		}

		if seen[labelID] {
			return nil, inconsistent("label id %q is declared more than once", labelID).
				Context("label_id", labelID).
				Build()
		}
		seen[labelID] = true

		labels = append(labels, LabelDefinition{ID: labelID, Text: descriptions[0].textContent()})
	}

	return labels, nil
}

// Assignments maps every fs under text to its segment id and label id.
func (t *Tree) Assignments() ([]Assignment, error) {
	text, err := t.single("text")
	if err != nil {
		return nil, err
	}

	var assignments []Assignment
	seen := make(map[string]bool)
	for _, fs := range text.findAll("fs") {
		labelID, _ := fs.attr("type")
		segmentID, _ := fs.xmlID()

		if seen[segmentID] {
			return nil, inconsistent("segment id %q has more than one label assignment", segmentID).
				Context("segment_id", segmentID).
				Build()
		}
		seen[segmentID] = true

		assignments = append(assignments, Assignment{SegmentID: segmentID, LabelID: labelID})
	}

	return assignments, nil
}

// AnnotatedSpans emits one Span per segment id referenced by each seg under text.
func (t *Tree) AnnotatedSpans() ([]Span, error) {
	text, err := t.single("text")
	if err != nil {
		return nil, err
	}

	var spans []Span
	for _, seg := range text.findAll("seg") {
		ana, _ := seg.attr("ana")
		segmentIDs := strings.Fields(strings.ReplaceAll(ana, "#", ""))
		if len(segmentIDs) == 0 {
			return nil, inconsistent("seg element references no segment ids").
				Context("ana", ana).
				Build()
		}

		ptrs := seg.findAll("ptr")
		if len(ptrs) != 1 {
			return nil, inconsistent("seg %s has %d ptr elements, expected 1", strings.Join(segmentIDs, " "), len(ptrs)).
				Context("segment_ids", segmentIDs).
				Build()
		}

		start, end, err := pointerRange(ptrs[0])
		if err != nil {
			return nil, err
		}

		for _, id := range segmentIDs {
			spans = append(spans, Span{SegmentID: id, Start: start, End: end})
		}
	}

	return spans, nil
}

// UnannotatedSpans returns the range of every ptr whose parent has no ana attribute.
func (t *Tree) UnannotatedSpans() ([]UnannotatedSpan, error) {
	var spans []UnannotatedSpan
	for _, ptr := range t.root.findAllInclusive("ptr") {
		if ptr.parent != nil {
			if _, annotated := ptr.parent.attr("ana"); annotated {
				continue
			}
		}

		start, end, err := pointerRange(ptr)
		if err != nil {
			return nil, err
		}
		spans = append(spans, UnannotatedSpan{Start: start, End: end})
	}
	return spans, nil
}

// pointerRange parses the char=S,E suffix of a ptr target.
func pointerRange(ptr *element) (start, end int, err error) {
	target, _ := ptr.attr("target")
	match := charRangePattern.FindStringSubmatch(target)
	if match == nil {
		return 0, 0, malformed(target, "target has no char=START,END range")
	}

	start, err = strconv.Atoi(match[1])
	if err != nil {
		return 0, 0, malformed(target, err.Error())
	}
	end, err = strconv.Atoi(match[2])
	if err != nil {
		return 0, 0, malformed(target, err.Error())
	}
	return start, end, nil
}

// CrossCheck verifies that the segment ids carrying a label assignment are
// exactly the segment ids referenced by spans.
func CrossCheck(assignments []Assignment, spans []Span) error {
	assigned := make(map[string]struct{}, len(assignments))
	for _, a := range assignments {
		assigned[a.SegmentID] = struct{}{}
	}
	referenced := make(map[string]struct{}, len(spans))
	for _, s := range spans {
		referenced[s.SegmentID] = struct{}{}
	}

	mismatch := &SegmentMismatchError{
		OnlyAssigned:   difference(assigned, referenced),
		OnlyReferenced: difference(referenced, assigned),
	}
	if len(mismatch.OnlyAssigned) == 0 && len(mismatch.OnlyReferenced) == 0 {
		return nil
	}

	return errors.New(mismatch).
		Component("standoff").
		Category(errors.CategoryInconsistentDocument).
		Context("only_assigned", mismatch.OnlyAssigned).
		Context("only_referenced", mismatch.OnlyReferenced).
		Build()
}

func difference(a, b map[string]struct{}) []string {
	var out []string
	for id := range a {
		if _, ok := b[id]; !ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
