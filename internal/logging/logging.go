package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"whatsapp-relay/internal/config"
)

// New builds the service logger. Output goes to stdout and, when LogDir is
// set, to a daily whatsapp_service_YYYYMMDD.log file in that directory.
func New(cfg *config.Config) (*log.Logger, error) {
	logger := log.New()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
		logger.Errorf(`unable to set log level: %v: level %s was setted`, err, level)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&log.TextFormatter{
		ForceColors:     false,
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})

	var out io.Writer = os.Stdout
	if cfg.LogDir != "" {
		f, err := openDailyFile(cfg.LogDir, time.Now())
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stdout, f)
	}
	logger.SetOutput(out)

	return logger, nil
}

func openDailyFile(dir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create log dir %s", dir)
	}
	name := filepath.Join(dir, "whatsapp_service_"+now.Format("20060102")+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s", name)
	}
	return f, nil
}
