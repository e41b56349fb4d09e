package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/knesset-annotations/catmaset/cmd/build"
	"github.com/knesset-annotations/catmaset/cmd/config"
	"github.com/knesset-annotations/catmaset/cmd/protocol"
	"github.com/knesset-annotations/catmaset/cmd/validate"
	"github.com/knesset-annotations/catmaset/internal/buildinfo"
	"github.com/knesset-annotations/catmaset/internal/conf"
	"github.com/knesset-annotations/catmaset/internal/logger"
	"github.com/knesset-annotations/catmaset/internal/telemetry"
)

// app holds what the root command sets up for its subcommands.
type app struct {
	settings   *conf.Settings
	info       *buildinfo.Context
	configFile string
	log        *logger.CentralLogger
	telemetry  *telemetry.Client
}

// Execute runs the command line and releases logging and telemetry
// resources afterwards.
func Execute(ctx context.Context, info *buildinfo.Context) error {
	a := &app{settings: &conf.Settings{}, info: info}
	err := rootCommand(a).ExecuteContext(ctx)
	a.shutdown()
	return err
}

// rootCommand creates and returns the root command
func rootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "catmaset",
		Short:         "Build a flat annotation dataset from CATMA standoff exports",
		Version:       a.info.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, a)

	configCmd := config.Command(a.settings)
	rootCmd.AddCommand(
		build.Command(a.settings),
		protocol.Command(a.settings),
		validate.Command(a.settings),
		configCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// config init must work even when the current config file is broken
		if cmd.Parent() == configCmd && cmd.Name() == config.InitCommandName {
			return nil
		}
		return a.initialize()
	}

	return rootCmd
}

// initialize loads the configuration and sets up logging and telemetry.
func (a *app) initialize() error {
	if a.configFile != "" {
		viper.SetConfigFile(a.configFile)
	}

	settings, err := conf.Load()
	if err != nil {
		return err
	}
	*a.settings = *settings

	logging := a.settings.Logging
	if a.settings.Debug {
		logging.DefaultLevel = "debug"
		if logging.Console != nil {
			logging.Console = &logger.ConsoleOutput{Enabled: logging.Console.Enabled, Level: "debug"}
		}
	}
	cl, err := logger.NewCentralLogger(&logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)
	a.log = cl

	client, err := telemetry.Init(&a.settings.Sentry, a.info.Release())
	if err != nil {
		return err
	}
	a.telemetry = client

	return nil
}

func (a *app) shutdown() {
	a.telemetry.Close()
	if a.log != nil {
		_ = a.log.Flush()
		_ = a.log.Close()
	}
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, a *app) {
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to the config file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}
