// Package logging configures the process-wide logrus logger used by
// ldmtool, in the style of the hpe-storage-common-host-libs logger:
// a configurable level, a choice of text or JSON formatter, and caller
// source locations on every entry.
package logging

import (
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// Params controls logger initialization; the zero value yields the
// defaults (info level, text format).
type Params struct {
	Level  string
	Format string
}

const (
	defaultLevel = "info"
	FormatText   = "text"
	FormatJSON   = "json"
)

// Init configures the standard logrus logger according to p, returning an
// error if Level does not name a known logrus level.
func Init(p Params) error {
	level := p.Level
	if level == "" {
		level = defaultLevel
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(parsed)
	logrus.SetReportCaller(true)

	if p.Format == FormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{CallerPrettyfier: prettifyCaller})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, CallerPrettyfier: prettifyCaller})
	}
	logrus.SetOutput(os.Stderr)

	return nil
}

// prettifyCaller trims the caller's function name to its final component and
// the file path to its base name, matching hpe-storage-common-host-libs'
// CustomCallerPrettyfier.
func prettifyCaller(f *runtime.Frame) (function string, file string) {
	parts := strings.Split(f.Function, ".")
	funcname := parts[len(parts)-1]
	_, filename := path.Split(f.File)
	return funcname, filename
}
