package log

import (
	"io"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

const (
	// FormatText logs as human readable text
	FormatText = "text"
	// FormatJSON logs as JSON
	FormatJSON = "json"
)

// Config holds the logging configuration
type Config struct {
	Level     string `yaml:"level" default:"info"`
	Format    string `yaml:"format" default:"text"`
	Timestamp bool   `yaml:"timestamp" default:"true"`
}

// nolint:gochecknoglobals
var logger *logrus.Logger

// nolint:gochecknoinits
func init() {
	logger = logrus.New()

	ConfigureLogger(Config{Level: "info", Format: FormatText, Timestamp: true})
}

// Log returns the global logger
func Log() *logrus.Logger {
	return logger
}

// PrefixedLog returns the global logger with the passed prefix
func PrefixedLog(prefix string) *logrus.Entry {
	return logger.WithField("prefix", prefix)
}

// ConfigureLogger applies configuration to the global logger
func ConfigureLogger(cfg Config) {
	if level, err := logrus.ParseLevel(cfg.Level); err != nil {
		logger.Fatalf("invalid log level %s %v", cfg.Level, err)
	} else {
		logger.SetLevel(level)
	}

	switch cfg.Format {
	case FormatText:
		logFormatter := &prefixed.TextFormatter{
			TimestampFormat:  "2006-01-02 15:04:05",
			FullTimestamp:    true,
			ForceFormatting:  true,
			ForceColors:      false,
			QuoteEmptyFields: true,
			DisableTimestamp: !cfg.Timestamp,
		}

		logFormatter.SetColorScheme(&prefixed.ColorScheme{
			PrefixStyle:    "blue+b",
			TimestampStyle: "white+h",
		})

		logger.SetFormatter(logFormatter)
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.Fatalf("invalid log format '%s', should be '%s' or '%s'", cfg.Format, FormatText, FormatJSON)
	}
}

// Silence disables the logger output
func Silence() {
	logger.Out = io.Discard
}
