// config.go: settings struct for catmaset and the functions to load and write it.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/knesset-annotations/catmaset/internal/errors"
	"github.com/knesset-annotations/catmaset/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// InputSettings locates the corpus on disk.
type InputSettings struct {
	DataDir string `yaml:"datadir"` // directory holding the archive; unpacked data goes here too
	Archive string `yaml:"archive"` // zip file name inside DataDir
}

// OutputSettings controls where and how the final table is written.
type OutputSettings struct {
	Path   string `yaml:"path"`   // destination file
	Format string `yaml:"format"` // auto, tsv, csv or xlsx
}

// ContextSettings holds the character shifts used for the context windows.
// Before is normally negative, After positive.
type ContextSettings struct {
	Before int `yaml:"before"`
	After  int `yaml:"after"`
}

// TranscriptSettings controls transcript normalization.
type TranscriptSettings struct {
	LineBreak string `yaml:"linebreak"` // replacement for every newline and tab
}

// LabelRename maps one raw label text to its canonical form.
type LabelRename struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// LabelSettings controls corpus-level label normalization and filtering.
type LabelSettings struct {
	Rename  []LabelRename `yaml:"rename"`
	Exclude []string      `yaml:"exclude"` // labels whose rows are dropped after renaming
}

// RenameMap returns the rename table as a lookup map.
func (l *LabelSettings) RenameMap() map[string]string {
	m := make(map[string]string, len(l.Rename))
	for _, r := range l.Rename {
		m[r.From] = r.To
	}
	return m
}

// MetricsSettings configures run metrics.
type MetricsSettings struct {
	Enabled     bool   `yaml:"enabled"`
	PushGateway string `yaml:"pushgateway"` // Prometheus Pushgateway URL; empty disables pushing
	Job         string `yaml:"job"`
}

// NotificationSettings configures the run summary notification.
type NotificationSettings struct {
	URLs      []string `yaml:"urls"` // shoutrrr service URLs
	OnSuccess bool     `yaml:"onsuccess"`
	OnFailure bool     `yaml:"onfailure"`
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// Settings contains all configuration options for catmaset.
type Settings struct {
	Debug        bool                 `yaml:"debug"`
	Input        InputSettings        `yaml:"input"`
	Output       OutputSettings       `yaml:"output"`
	Context      ContextSettings      `yaml:"context"`
	Transcript   TranscriptSettings   `yaml:"transcript"`
	Labels       LabelSettings        `yaml:"labels"`
	Logging      logger.LoggingConfig `yaml:"logging"`
	Metrics      MetricsSettings      `yaml:"metrics"`
	Notification NotificationSettings `yaml:"notification"`
	Sentry       SentrySettings       `yaml:"sentry"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file (if any), environment variables and
// bound command line flags into a new Settings value.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "init_viper").
			Build()
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "validate_config").
			Build()
	}

	settingsInstance = settings
	return settingsInstance, nil
}

func initViper() error {
	// --config sets the file explicitly; otherwise search the default paths
	if viper.ConfigFileUsed() == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		for _, path := range GetDefaultConfigPaths() {
			viper.AddConfigPath(path)
		}
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			GetLogger().Debug("no config file found, using defaults and environment")
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	GetLogger().Debug("loaded config file", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

// GetSettings returns the most recently loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DefaultConfig returns the embedded default config.yaml.
func DefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// MarshalYAML renders settings as YAML.
func MarshalYAML(settings *Settings) ([]byte, error) {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return data, nil
}

// WriteDefaultConfig writes the embedded default configuration to configPath.
// The file is written to a temporary file first and renamed into place.
func WriteDefaultConfig(configPath string) error {
	data, err := DefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.New(fmt.Errorf("error creating directories for config file: %w", err)).
			Category(errors.CategoryFileIO).
			Context("operation", "write_default_config").
			Build()
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer func() { _ = os.Remove(tempFileName) }()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return errors.New(fmt.Errorf("error moving config file into place: %w", err)).
			Category(errors.CategoryFileIO).
			FileContext(configPath, int64(len(data))).
			Build()
	}

	return nil
}
