// Package logging configures the process logger and hands out per-category
// entries, one per component.
package logging

import (
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Fixed-width timestamps; time.RFC3339Nano drops trailing zeros.
const timeStampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Setup applies the text formatter and the level to the standard logger.
// level is one of error, warn, info, debug, trace; empty means info.
func Setup(level string) error {
	l := log.StandardLogger()
	l.SetFormatter(&log.TextFormatter{
		DisableColors:          true,
		FullTimestamp:          true,
		TimestampFormat:        timeStampFormat,
		DisableSorting:         true,
		DisableLevelTruncation: true,
		QuoteEmptyFields:       true,
	})
	l.SetReportCaller(false)
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	l.SetLevel(lvl)
	return nil
}

// Category returns the logger of one component, labelled Silk/<name>.
func Category(name string) *log.Entry {
	return log.WithField("logger", "Silk/"+name)
}

// WithLaunch labels every line of one launch with a fresh launch id.
func WithLaunch(e *log.Entry) (*log.Entry, string) {
	id := uuid.NewString()
	return e.WithField("launch_id", id), id
}
