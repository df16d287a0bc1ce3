/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	serialsession "github.com/allbin/go-serialsession"
)

// cliConfig is the merged result of flags, config file and environment.
type cliConfig struct {
	Backend      string        `mapstructure:"backend"`
	PollInterval time.Duration `mapstructure:"poll-interval"`
	Log          logConfig     `mapstructure:"log"`
	Serial       serialConfig  `mapstructure:"serial"`
}

type logConfig struct {
	Level      slog.Level `mapstructure:"level"`
	File       string     `mapstructure:"file"`
	JSON       bool       `mapstructure:"json"`
	MaxSizeMB  int        `mapstructure:"max-size-mb"`
	MaxBackups int        `mapstructure:"max-backups"`
	Compress   bool       `mapstructure:"compress"`
}

type serialConfig struct {
	Baud        int                       `mapstructure:"baud"`
	DataBits    int                       `mapstructure:"data-bits"`
	StopBits    int                       `mapstructure:"stop-bits"`
	Parity      serialsession.Parity      `mapstructure:"parity"`
	FlowControl serialsession.FlowControl `mapstructure:"flow-control"`
	ReadTimeout time.Duration             `mapstructure:"read-timeout"`
	Buffer      int                       `mapstructure:"buffer"`
}

// options turns the serial section into session config options.
func (s serialConfig) options() []serialsession.Option {
	return []serialsession.Option{
		serialsession.WithBaudRate(s.Baud),
		serialsession.WithDataBits(s.DataBits),
		serialsession.WithStopBits(s.StopBits),
		serialsession.WithParity(s.Parity),
		serialsession.WithFlowControl(s.FlowControl),
		serialsession.WithReadTimeout(s.ReadTimeout),
		serialsession.WithBufferSize(s.Buffer),
	}
}

// flagKeys maps config keys to the persistent flags that set them.
var flagKeys = map[string]string{
	"backend":             "backend",
	"poll-interval":       "poll-interval",
	"log.level":           "log-level",
	"log.file":            "log-file",
	"log.json":            "log-json",
	"serial.baud":         "baud",
	"serial.data-bits":    "data-bits",
	"serial.stop-bits":    "stop-bits",
	"serial.parity":       "parity",
	"serial.flow-control": "flow-control",
	"serial.read-timeout": "read-timeout",
	"serial.buffer":       "buffer",
}

// bindFlags binds the persistent flags into v and sets the defaults that
// have no flag.
func bindFlags(v *viper.Viper, lookup func(string) *pflag.Flag) {
	for key, name := range flagKeys {
		cobra.CheckErr(v.BindPFlag(key, lookup(name)))
	}
	v.SetDefault("log.max-size-mb", 10)
	v.SetDefault("log.max-backups", 3)
	v.SetDefault("log.compress", true)
}

// setupEnv makes SERIALSESSION_SERIAL_BAUD and friends override the file.
func setupEnv(v *viper.Viper) {
	v.SetEnvPrefix("SERIALSESSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// loadConfig decodes and validates everything v knows.
func loadConfig(v *viper.Viper) (cliConfig, error) {
	var c cliConfig
	hooks := mapstructure.ComposeDecodeHookFunc(
		parseHook(serialsession.ParseParity),
		parseHook(serialsession.ParseFlowControl),
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
	if err := v.Unmarshal(&c, viper.DecodeHook(hooks)); err != nil {
		return c, fmt.Errorf("invalid configuration: %w", err)
	}

	if !slices.Contains(backends, c.Backend) {
		return c, fmt.Errorf("unknown backend %q (valid: %s)", c.Backend, strings.Join(backends, ", "))
	}
	if _, err := serialsession.NewConfigStore().Preview(c.Serial.options()...); err != nil {
		return c, fmt.Errorf("invalid serial settings: %w", err)
	}
	return c, nil
}

// parseHook decodes strings into T with parse, leaving other values alone.
func parseHook[T any](parse func(string) (T, error)) mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf((*T)(nil)).Elem()
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != target {
			return data, nil
		}
		return parse(data.(string))
	}
}
