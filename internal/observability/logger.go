package observability

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

// NewLogger builds the operational logger. Output goes to stderr so that
// command output on stdout stays machine-readable. An unknown level falls
// back to info.
func NewLogger(cfg models.LogConfig) *logrus.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg models.LogConfig, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
