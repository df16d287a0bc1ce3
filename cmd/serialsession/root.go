/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	serialsession "github.com/allbin/go-serialsession"
)

var (
	cfgFile string

	cfg       cliConfig
	logger    = slog.New(slog.DiscardHandler)
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialsession",
	Short: "Managed serial port sessions from the command line",
	Long: `serialsession opens serial ports through a managed session: one owner per
port, a read loop delivering data in order, serialized writes and a poller
that tracks the modem control lines.

Serial parameters, logging and the backend can be set with flags, a config
file ($HOME/.serialsession.yaml) or SERIALSESSION_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = loaded

		logger, logCloser, err = setupLogging(cfg.Log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.serialsession.yaml)")
	pf.String("backend", defaultBackend, "Serial backend: "+strings.Join(backends, ", "))
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.String("log-file", "", "Write JSON logs to a rotating file instead of stderr")
	pf.Bool("log-json", false, "Log JSON to stderr")

	pf.IntP("baud", "b", 115200, "Baud rate")
	pf.Int("data-bits", 8, "Data bits: 7 or 8")
	pf.Int("stop-bits", 1, "Stop bits: 1 or 2")
	pf.String("parity", "none", "Parity: none, even, odd")
	pf.StringP("flow-control", "f", "none", "Flow control: none, rtscts")
	pf.Duration("read-timeout", serialsession.DefaultReadTimeout, "Idle read timeout (multiple of 100ms)")
	pf.Int("buffer", serialsession.DefaultBufferSize, "Read chunk size")
	pf.Duration("poll-interval", serialsession.DefaultPollInterval, "Control signal poll interval")

	bindFlags(viper.GetViper(), pf.Lookup)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".serialsession")
	}

	setupEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
