package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/settings"
	"codeberg.org/mutker/serialplot/internal/stream"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix   = "SERIALPLOT"
	DefaultLogLevel    = string(LogLevelInfo)
	DefaultBaud        = 9600
	DefaultInterval    = 1.0
	DefaultMode        = "all"
	DefaultMetricsDB   = "/var/lib/serialplot/samples.db"
	DefaultTelemetryDB = "/var/lib/serialplot/sessions.db"

	configName = "serialplot"
	configType = "toml"

	minInterval     = 0.1
	minLostInterval = 0.002
	maxInterval     = 60.0
)

type Config struct {
	Port        string        `mapstructure:"port"`
	Baud        int           `mapstructure:"baud"`
	Interval    float64       `mapstructure:"interval"`
	Mode        string        `mapstructure:"mode"`
	Warmup      time.Duration `mapstructure:"warmup"`
	Settle      time.Duration `mapstructure:"settle"`
	LogLevel    string        `mapstructure:"log_level"`
	Debug       bool          `mapstructure:"debug"`
	Verbose     bool          `mapstructure:"verbose"`
	Settings    string        `mapstructure:"settings"`
	Export      string        `mapstructure:"export"`
	Names       []string      `mapstructure:"names"`
	Metrics     bool          `mapstructure:"metrics"`
	MetricsDB   string        `mapstructure:"metrics_db"`
	Telemetry   bool          `mapstructure:"telemetry"`
	TelemetryDB string        `mapstructure:"telemetry_db"`
	Listen      string        `mapstructure:"listen"`
	ListPorts   bool          `mapstructure:"list_ports"`

	// ConfigFile is the config file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"port":         "port",
	"baud":         "baud",
	"interval":     "interval",
	"mode":         "mode",
	"warmup":       "warmup",
	"settle":       "settle",
	"log-level":    "log_level",
	"debug":        "debug",
	"verbose":      "verbose",
	"settings":     "settings",
	"export":       "export",
	"names":        "names",
	"metrics":      "metrics",
	"metrics-db":   "metrics_db",
	"telemetry":    "telemetry",
	"telemetry-db": "telemetry_db",
	"listen":       "listen",
	"list-ports":   "list_ports",
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.StringP("port", "p", "", "Serial device to read, e.g. /dev/ttyUSB0")
	fs.IntP("baud", "b", DefaultBaud, "Baud rate")
	fs.Float64P("interval", "i", DefaultInterval, "Poll interval (window width) in seconds")
	fs.StringP("mode", "m", DefaultMode, "Aggregation mode: all, lost or mean")
	fs.Duration("warmup", stream.DefaultWarmup, "Wait after opening the port before clearing its input")
	fs.Duration("settle", stream.DefaultSettle, "Wait after clearing the input before the first poll")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warning or error")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Log every emitted pass")
	fs.String("settings", settings.DefaultPath, "Settings file remembering the last session")
	fs.String("export", "", "Write received samples as tab separated text to this file on exit")
	fs.StringSlice("names", nil, "Channel names for the export header, comma separated in channel order")
	fs.Bool("metrics", false, "Record samples to the sqlite database")
	fs.String("metrics-db", DefaultMetricsDB, "Sample database path")
	fs.Bool("telemetry", false, "Record session summaries to the sqlite database")
	fs.String("telemetry-db", DefaultTelemetryDB, "Session database path")
	fs.String("listen", "", "Serve Prometheus metrics on this address, e.g. :9110")
	fs.Bool("list-ports", false, "List serial ports and exit")
	fs.StringP("config", "c", "", "Config file")

	return fs
}

// Load reads configuration from, in decreasing precedence, command line
// arguments, SERIALPLOT_* environment variables, the TOML config file, the
// settings file of the previous session and built-in defaults.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
		}
	}

	fs := newFlagSet(configName)
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configFile := o.configPath
	if f := fs.Lookup("config"); f != nil && f.Changed {
		configFile = f.Value.String()
	}
	if configFile == "" {
		configFile = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	if err := applySettingsFile(v); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	config.ConfigFile = v.ConfigFileUsed()

	if config.Debug {
		config.LogLevel = string(LogLevelDebug)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(configType)
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath("/etc")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, configName))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

// applySettingsFile uses the previous session's settings as defaults, so
// anything set explicitly still wins.
func applySettingsFile(v *viper.Viper) error {
	path := v.GetString("settings")
	if path == "" {
		return nil
	}

	s, ok, err := settings.Load(path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	v.SetDefault("port", s.Port)
	v.SetDefault("baud", s.Baud)
	v.SetDefault("interval", s.Interval)
	v.SetDefault("mode", strconv.Itoa(s.Mode))

	return nil
}

// Validate checks the loaded values and returns the first problem found.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, invalidField("log_level", c.LogLevel, "unknown level"))
	}

	if c.ListPorts {
		return nil
	}

	if c.Baud <= 0 {
		return errFactory.WithData(errors.ErrInvalidBaudRate, invalidField("baud", c.Baud, "must be positive"))
	}

	mode, err := stream.ParseMode(c.Mode)
	if err != nil {
		return err
	}

	lowest := minInterval
	if mode == stream.ModeLost {
		lowest = minLostInterval
	}
	if c.Interval < lowest || c.Interval > maxInterval {
		return errFactory.WithData(errors.ErrInvalidInterval, invalidField("interval", c.Interval,
			"must be between "+strconv.FormatFloat(lowest, 'g', -1, 64)+" and "+strconv.FormatFloat(maxInterval, 'g', -1, 64)+" seconds"))
	}

	if c.Warmup < 0 || c.Settle < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, invalidField("warmup", c.Warmup, "must not be negative"))
	}

	if c.Metrics && c.MetricsDB == "" {
		return errFactory.WithData(errors.ErrMissingConfig, invalidField("metrics_db", c.MetricsDB, "required when metrics is enabled"))
	}

	if c.Telemetry && c.TelemetryDB == "" {
		return errFactory.WithData(errors.ErrMissingConfig, invalidField("telemetry_db", c.TelemetryDB, "required when telemetry is enabled"))
	}

	return nil
}

// AggregationMode returns the parsed mode. Only valid after Validate.
func (c *Config) AggregationMode() stream.Mode {
	mode, _ := stream.ParseMode(c.Mode)
	return mode
}

// IntervalDuration returns the poll interval as a duration.
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval * float64(time.Second))
}

// SessionSettings returns the values persisted to the settings file.
func (c *Config) SessionSettings() settings.Settings {
	return settings.Settings{
		Port:     c.Port,
		Baud:     c.Baud,
		Interval: c.Interval,
		Mode:     int(c.AggregationMode()),
	}
}
