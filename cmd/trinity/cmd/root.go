package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/trinity/internal/targets"
	"github.com/psantana5/trinity/pkg/logging"
)

var (
	cfgFile      string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "trinity",
	Short: "Gated, self-healing process supervisor",
	Long: `trinity launches a fixed set of named targets, gates every launch behind a
config threshold check and an anchor file integrity check, and relaunches any
target whose process exits until it is interrupted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.trinity/config.yaml)")
	flags.StringVar(&outputFormat, "output", "table", "output format: table or json")
	flags.String("targets", "", "target table YAML (default: built-in kernel table)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.Bool("log-file", false, "also write logs to /var/log/trinity (or ./logs)")

	viper.BindPFlag("targets_file", flags.Lookup("targets"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))
	viper.BindPFlag("log_file", flags.Lookup("log-file"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".trinity"))
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("trinity")
	viper.AutomaticEnv()

	viper.SetDefault("lock_file", filepath.Join(os.TempDir(), "trinity.lock"))

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Warning: reading %s: %v\n", cfgFile, err)
		}
	}
}

// newLogger builds the logger from log_level, log_format and log_file.
func newLogger() (*logging.Logger, error) {
	level := logging.ParseLevel(viper.GetString("log_level"))
	jsonFormat := viper.GetString("log_format") == "json"

	if viper.GetBool("log_file") {
		return logging.NewFileLogger("supervisor", level, jsonFormat)
	}
	return logging.NewLogger(level, jsonFormat), nil
}

// loadTable returns the configured target table, or the built-in one.
func loadTable() (*targets.Table, error) {
	path := viper.GetString("targets_file")
	if path == "" {
		return targets.Default(), nil
	}
	path, err := targets.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	return targets.LoadTable(path)
}

// IsJSONOutput reports whether --output json was requested.
func IsJSONOutput() bool {
	return outputFormat == "json"
}
