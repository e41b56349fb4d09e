package standoff

import (
	"fmt"
	"strings"

	"github.com/knesset-annotations/catmaset/internal/errors"
)

// SegmentMismatchError lists the segment ids present on only one side of the
// assignment/span cross-reference.
type SegmentMismatchError struct {
	OnlyAssigned   []string // have an fs label assignment but no seg span
	OnlyReferenced []string // referenced by a seg but never assigned a label
}

func (e *SegmentMismatchError) Error() string {
	var parts []string
	if len(e.OnlyAssigned) > 0 {
		parts = append(parts, fmt.Sprintf("assigned without span: [%s]", strings.Join(e.OnlyAssigned, " ")))
	}
	if len(e.OnlyReferenced) > 0 {
		parts = append(parts, fmt.Sprintf("spanned without assignment: [%s]", strings.Join(e.OnlyReferenced, " ")))
	}
	return "segment ids do not cross-reference: " + strings.Join(parts, "; ")
}

// ErrorCategory lets the errors package classify the mismatch on its own.
func (e *SegmentMismatchError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryInconsistentDocument
}

func inconsistent(format string, args ...any) *errors.ErrorBuilder {
	return errors.Newf(format, args...).
		Component("standoff").
		Category(errors.CategoryInconsistentDocument)
}

func malformed(target, reason string) error {
	return errors.Newf("malformed pointer target %q: %s", target, reason).
		Component("standoff").
		Category(errors.CategoryMalformedPointer).
		Context("target", target).
		Build()
}
