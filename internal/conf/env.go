// env.go - environment variable bindings and their validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation.
// The first five names are the ones the corpus tooling has always used.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"input.datadir", "CATMA_DATA_DIR", validateEnvNotBlank},
		{"input.archive", "AVICHAI_ZIP_FILE", validateEnvNotBlank},
		{"output.path", "OUTPUT_TSV_PATH", validateEnvNotBlank},
		{"context.before", "BEFORE_TEXT_CONTEXT_SIZE", validateEnvInt},
		{"context.after", "AFTER_TEXT_CONTEXT_SIZE", validateEnvInt},

		{"output.format", "CATMASET_OUTPUT_FORMAT", validateEnvOutputFormat},
		{"metrics.pushgateway", "CATMASET_PUSHGATEWAY", validateEnvURL},
		{"notification.urls", "CATMASET_NOTIFY_URLS", nil},
		{"sentry.dsn", "CATMASET_SENTRY_DSN", validateEnvURL},
		{"debug", "CATMASET_DEBUG", validateEnvBool},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var problems []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue, ok := os.LookupEnv(binding.EnvVar); ok && envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				problems = append(problems, fmt.Sprintf("invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvInt(value string) error {
	if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("must be an integer: %w", err)
	}
	return nil
}

func validateEnvNotBlank(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("must not be blank")
	}
	return nil
}

func validateEnvOutputFormat(value string) error {
	if !isValidOutputFormat(strings.ToLower(strings.TrimSpace(value))) {
		return fmt.Errorf("must be one of %s", strings.Join(validOutputFormats, ", "))
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host")
	}
	return nil
}
