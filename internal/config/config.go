package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const envPrefix = "CHECK_GRAYLOG_LAG"

// maxSeconds is the largest second count a time.Duration can hold.
const maxSeconds = math.MaxInt64 / int64(time.Second)

type Config struct {
	Host     string `mapstructure:"graylog-host"` // search API host
	Port     int    `mapstructure:"port"`
	Scheme   string `mapstructure:"scheme"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Query    string `mapstructure:"query"`
	Range    int    `mapstructure:"range"` // search window in seconds, 0 = all time

	TimeoutSeconds  int `mapstructure:"timeout"`
	WarningSeconds  int `mapstructure:"warning"`
	CriticalSeconds int `mapstructure:"critical"`

	ConnectionErrorsAreCritical bool `mapstructure:"connection-errors-are-critical"`

	LogDir   string `mapstructure:"log-dir"` // empty logs to stderr
	LogLevel string `mapstructure:"log-level"`
}

func (c Config) Timeout() time.Duration  { return time.Duration(c.TimeoutSeconds) * time.Second }
func (c Config) Warning() time.Duration  { return time.Duration(c.WarningSeconds) * time.Second }
func (c Config) Critical() time.Duration { return time.Duration(c.CriticalSeconds) * time.Second }

func defaultHost() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "localhost"
}

// NewFlagSet declares the plugin flags. Usage is written to out.
func NewFlagSet(name string, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.SortFlags = false

	fs.StringP("graylog-host", "g", defaultHost(), "Graylog API host")
	fs.IntP("port", "p", 12900, "Graylog API port")
	fs.String("scheme", "http", "http or https")
	fs.IntP("timeout", "t", 10, "request timeout in seconds")
	fs.IntP("warning", "w", 300, "lag in seconds at which the check turns WARNING")
	fs.IntP("critical", "c", 900, "lag in seconds at which the check turns CRITICAL")
	fs.Bool("connection-errors-are-critical", false, "report refused and timed out requests as CRITICAL instead of UNKNOWN")
	fs.StringP("username", "u", "", "API user for basic auth")
	fs.String("password", "", "API password for basic auth")
	fs.StringP("query", "q", "*", "search query")
	fs.IntP("range", "r", 0, "relative search range in seconds, 0 for all time")
	fs.String("config", "", "optional config file (yaml, json or toml)")
	fs.String("log-dir", "", "write diagnostics to a rotating file in this directory instead of stderr")
	fs.String("log-level", "error", "diagnostic log level")
	return fs
}

// Load parses args, then layers environment (CHECK_GRAYLOG_LAG_*) and an
// optional config file under explicitly set flags.
func Load(args []string, out io.Writer) (Config, error) {
	fs := NewFlagSet("check_graylog_lag", out)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Scheme = strings.ToLower(strings.TrimSpace(cfg.Scheme))
	cfg.Host = strings.TrimSpace(cfg.Host)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	if c.Host == "" {
		err = multierr.Append(err, errors.New("graylog-host is empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Scheme != "http" && c.Scheme != "https" {
		err = multierr.Append(err, fmt.Errorf("scheme %q must be http or https", c.Scheme))
	}
	if c.TimeoutSeconds <= 0 {
		err = multierr.Append(err, errors.New("timeout must be positive"))
	}
	if c.WarningSeconds <= 0 {
		err = multierr.Append(err, errors.New("warning must be positive"))
	}
	for _, d := range []struct {
		name string
		n    int
	}{{"timeout", c.TimeoutSeconds}, {"warning", c.WarningSeconds}, {"critical", c.CriticalSeconds}} {
		if int64(d.n) > maxSeconds {
			err = multierr.Append(err, fmt.Errorf("%s %ds exceeds %ds", d.name, d.n, maxSeconds))
		}
	}
	if c.WarningSeconds >= c.CriticalSeconds {
		err = multierr.Append(err, fmt.Errorf("warning (%ds) must be below critical (%ds)", c.WarningSeconds, c.CriticalSeconds))
	}
	if c.Range < 0 {
		err = multierr.Append(err, errors.New("range must not be negative"))
	}
	if c.Password != "" && c.Username == "" {
		err = multierr.Append(err, errors.New("password given without username"))
	}
	return err
}
