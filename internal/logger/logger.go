package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tgienger/atm/internal/config"
)

var log = logrus.New()

func init() {
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Init configures the global logger. With a log file configured, output goes
// to a rotating JSON log; otherwise it goes to stderr as text.
func Init(cfg config.Log) error {
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to 'warn'", cfg.Level)
		level = logrus.WarnLevel
	}
	log.SetLevel(level)

	if cfg.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	log.Debugf("Log level set to '%s'", level)
	return nil
}

// SetOutput redirects log output, e.g. to io.Discard while a TUI owns the terminal
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// WithComponent returns an entry tagged with the component name
func WithComponent(name string) *logrus.Entry {
	return log.WithField("component", name)
}
