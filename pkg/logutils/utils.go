package logutils

import "github.com/sirupsen/logrus"

var log = logrus.StandardLogger()

// SetLoggerLevel sets the global level, falling back to info when the
// given level is not parseable.
func SetLoggerLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
}
