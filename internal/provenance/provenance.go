// Package provenance derives the committee name and protocol number of a
// protocol from its transcript and directory name.
package provenance

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knesset-annotations/catmaset/internal/errors"
)

// Resolver resolves the provenance fields of one protocol.
type Resolver interface {
	ResolveCommittee(text string) (string, error)
	ResolveProtocolNumber(text, dirName string) (string, error)
}

var (
	// committee keyword followed by Hebrew letters and spaces
	defaultCommitteePattern = regexp.MustCompile(`ועדת[\x{0590}-\x{05FF} ]*`)
	defaultNumberPattern    = regexp.MustCompile(`פרוטוקול מס'[ ]*(\p{Nd}+)`)
	defaultDirNumberPattern = regexp.MustCompile(`פרוטוקול_(\p{Nd}+)`)
)

// PatternResolver is a Resolver driven by regular expressions. The number
// patterns must have one capture group holding the digits.
type PatternResolver struct {
	Committee       *regexp.Regexp
	ProtocolNumber  *regexp.Regexp
	DirectoryNumber *regexp.Regexp
}

// NewPatternResolver returns a resolver with the Knesset transcript patterns.
func NewPatternResolver() *PatternResolver {
	return &PatternResolver{
		Committee:       defaultCommitteePattern,
		ProtocolNumber:  defaultNumberPattern,
		DirectoryNumber: defaultDirNumberPattern,
	}
}

// ResolveCommittee returns the first committee name found in text.
func (r *PatternResolver) ResolveCommittee(text string) (string, error) {
	match := strings.TrimSpace(r.Committee.FindString(text))
	if match == "" {
		return "", errors.Newf("no committee name found in transcript").
			Component("provenance").
			Category(errors.CategoryMissingProvenance).
			Context("operation", "resolve_committee").
			Context("pattern", r.Committee.String()).
			Build()
	}
	return match, nil
}

// ResolveProtocolNumber reads the protocol number from the transcript header,
// falling back to the number embedded in the protocol directory name.
func (r *PatternResolver) ResolveProtocolNumber(text, dirName string) (string, error) {
	if m := r.ProtocolNumber.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}

	base := filepath.Base(dirName)
	if m := r.DirectoryNumber.FindStringSubmatch(base); m != nil {
		GetLogger().Debug("protocol number taken from directory name")
		return m[1], nil
	}

	return "", errors.Newf("no protocol number in transcript or directory name %q", base).
		Component("provenance").
		Category(errors.CategoryMissingProvenance).
		Context("operation", "resolve_protocol_number").
		Context("directory", base).
		Build()
}
