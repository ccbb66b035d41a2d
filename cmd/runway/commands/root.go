package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/runwayhq/runway/cmd/runway/cli"
	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/version"
)

const (
	DefaultConfigDir = "~/"
	ConfigFileName   = ".runway-cli"
)

var (
	defaultConfigFilePath = fmt.Sprintf("%s%s.yml", DefaultConfigDir, ConfigFileName)
)

type GlobalConfig struct {
	Debug          bool
	JSON           bool
	LogLevels      string
	ConfigFilePath string
}

var Global = &GlobalConfig{}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVarP(
		&Global.ConfigFilePath,
		"config",
		"c",
		defaultConfigFilePath,
		"The config file to use when executing commands.")

	RootCmd.PersistentFlags().BoolVarP(
		&Global.Debug,
		"debug",
		"d",
		false,
		"Enable verbose debug output.")

	RootCmd.PersistentFlags().BoolVarP(
		&Global.JSON,
		"json",
		"j",
		false,
		"Enable structured JSON output.")

	RootCmd.PersistentFlags().StringVar(
		&Global.LogLevels,
		"log-levels",
		"",
		fmt.Sprintf("Per-subsystem log levels, e.g. \"Scheduler=debug\". Valid levels: %s.", logger.ListLogLevels()))
}

// EffectiveLogLevels returns the log level config, folding in --debug.
func (c *GlobalConfig) EffectiveLogLevels() string {
	if c.Debug {
		if c.LogLevels == "" {
			return "*=debug"
		}
		return "*=debug," + c.LogLevels
	}
	return c.LogLevels
}

// Execute adds all child commands to the root command sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cli.Exit(RootCmd.Execute())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {

	if Global.ConfigFilePath != "" && Global.ConfigFilePath != defaultConfigFilePath {
		viper.SetConfigFile(Global.ConfigFilePath)
	} else {
		viper.SetConfigName(ConfigFileName)
		viper.AddConfigPath(DefaultConfigDir)
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("RUNWAY")
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	err := viper.ReadInConfig()
	if err == nil {
		Global.ConfigFilePath = viper.ConfigFileUsed()
		cli.Stderr.Printf("Using config file: %s", viper.ConfigFileUsed())
	} else {
		switch err.(type) {
		case viper.ConfigFileNotFoundError:
		default:
			cli.Exit(fmt.Errorf("error loading config file (%s): %s", viper.ConfigFileUsed(), err))
		}
	}
}

var RootCmd = &cobra.Command{
	Use:     "runway",
	Short:   "Runway is a task environment orchestrator",
	Long:    `Runway provisions isolated task environments and runs their commands, as declared in the project manifest.`,
	Version: version.VersionToString(),
}
