// conf/validate.go

package conf

import (
	"fmt"
	"slices"
	"strings"
)

var validOutputFormats = []string{"auto", "tsv", "csv", "xlsx"}

func isValidOutputFormat(format string) bool {
	return slices.Contains(validOutputFormats, format)
}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateInputSettings(&settings.Input); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLabelSettings(&settings.Labels); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry is enabled but no DSN is configured")
	}

	if settings.Metrics.PushGateway != "" && settings.Metrics.Job == "" {
		ve.Errors = append(ve.Errors, "metrics job name must be set when a pushgateway is configured")
	}

	if len(ve.Errors) > 0 {
		return ve
	}

	return nil
}

func validateInputSettings(s *InputSettings) error {
	if strings.TrimSpace(s.DataDir) == "" {
		return fmt.Errorf("input data directory must be set")
	}
	if strings.TrimSpace(s.Archive) == "" {
		return fmt.Errorf("input archive name must be set")
	}
	return nil
}

func validateOutputSettings(s *OutputSettings) error {
	if strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("output path must be set")
	}
	s.Format = strings.ToLower(strings.TrimSpace(s.Format))
	if s.Format == "" {
		s.Format = DefaultOutputFormat
	}
	if !isValidOutputFormat(s.Format) {
		return fmt.Errorf("invalid output format %q, must be one of %s", s.Format, strings.Join(validOutputFormats, ", "))
	}
	return nil
}

func validateLabelSettings(s *LabelSettings) error {
	seen := make(map[string]bool, len(s.Rename))
	for _, r := range s.Rename {
		if r.From == "" {
			return fmt.Errorf("label rename entry with empty 'from'")
		}
		if seen[r.From] {
			return fmt.Errorf("label %q is renamed more than once", r.From)
		}
		seen[r.From] = true
	}
	return nil
}
