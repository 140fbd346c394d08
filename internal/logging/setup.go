// Package logging configures the process logger and records aggregation
// verdicts alongside the stored results.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// #region setup
// Setup configures the standard logrus logger. format is "text" or "json".
func Setup(out io.Writer, level, format string) error {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}

	var f logrus.Formatter
	switch strings.ToLower(format) {
	case "", "text":
		f = &logrus.TextFormatter{FullTimestamp: true}
	case "json":
		f = &logrus.JSONFormatter{}
	default:
		return fmt.Errorf("log format %q: want text or json", format)
	}

	if out != nil {
		logrus.SetOutput(out)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(f)
	return nil
}
// #endregion setup
