// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"

	"github.com/knesset-annotations/catmaset/internal/logger"
)

// Default values shared with the embedded config.yaml.
const (
	DefaultDataDir       = "data"
	DefaultArchive       = "avichai.zip"
	DefaultOutputPath    = "output/dataset.tsv"
	DefaultOutputFormat  = "auto"
	DefaultBeforeContext = -100
	DefaultAfterContext  = 100
	DefaultLineBreak     = "  "
	DefaultExcludedLabel = "Doubt"
	DefaultMetricsJob    = "catmaset"
)

// DefaultLabelRenames is the label normalization applied to the corpus.
func DefaultLabelRenames() []LabelRename {
	return []LabelRename{
		{From: "judicial decision turns turns", To: "Judicial decision"},
		{From: "Anticipating Judicial Review turns", To: "Anticipating Judicial Review"},
	}
}

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("input.datadir", DefaultDataDir)
	viper.SetDefault("input.archive", DefaultArchive)

	viper.SetDefault("output.path", DefaultOutputPath)
	viper.SetDefault("output.format", DefaultOutputFormat)

	viper.SetDefault("context.before", DefaultBeforeContext)
	viper.SetDefault("context.after", DefaultAfterContext)

	viper.SetDefault("transcript.linebreak", DefaultLineBreak)

	renames := make([]map[string]any, 0, len(DefaultLabelRenames()))
	for _, r := range DefaultLabelRenames() {
		renames = append(renames, map[string]any{"from": r.From, "to": r.To})
	}
	viper.SetDefault("labels.rename", renames)
	viper.SetDefault("labels.exclude", []string{DefaultExcludedLabel})

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", "debug")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.pushgateway", "")
	viper.SetDefault("metrics.job", DefaultMetricsJob)

	viper.SetDefault("notification.urls", []string{})
	viper.SetDefault("notification.onsuccess", true)
	viper.SetDefault("notification.onfailure", true)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}
