// Package transcript holds protocol transcripts in the form annotation
// offsets refer to, and cuts span text and context windows out of them.
package transcript

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/knesset-annotations/catmaset/internal/errors"
)

// Text is a normalized transcript indexed by character (code point).
type Text struct {
	runes []rune
}

// Normalize applies universal newline translation and then replaces every
// newline and tab with lineBreak. Annotation offsets were computed on text
// normalized this way.
func Normalize(raw, lineBreak string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.NewReplacer("\n", lineBreak, "\t", lineBreak).Replace(s)
}

// New wraps already normalized text.
func New(normalized string) *Text {
	return &Text{runes: []rune(normalized)}
}

// Load reads and normalizes a transcript file.
func Load(fs afero.Fs, path, lineBreak string) (*Text, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("read transcript: %w", err)).
			Component("transcript").
			Category(errors.CategoryMissingArtifact).
			Context("transcript", path).
			Build()
	}

	if !utf8.Valid(data) {
		return nil, errors.Newf("transcript %s is not valid UTF-8", path).
			Component("transcript").
			Category(errors.CategoryFileParsing).
			FileContext(path, int64(len(data))).
			Build()
	}

	return New(Normalize(string(data), lineBreak)), nil
}

// Len returns the length in characters.
func (t *Text) Len() int {
	return len(t.runes)
}

// String returns the whole normalized text.
func (t *Text) String() string {
	return string(t.runes)
}

// Slice returns text[start:end] with both bounds clamped to the text, so
// ranges running past either end shrink instead of failing.
func (t *Text) Slice(start, end int) string {
	start = clamp(start, 0, len(t.runes))
	end = clamp(end, 0, len(t.runes))
	if start >= end {
		return ""
	}
	return string(t.runes[start:end])
}

// SpanText returns text[start:end] with whitespace collapsed.
func (t *Text) SpanText(start, end int) string {
	return Collapse(t.Slice(start, end))
}

// Window returns the span [start, end) shifted by shift characters.
// The window has the span's length unless it runs off the text.
func (t *Text) Window(start, end, shift int) string {
	return t.Slice(start+shift, end+shift)
}

// Collapse trims s and collapses internal whitespace runs to one space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
