// Package logging configures the process-wide charmbracelet logger.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/zigtuner/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// file mirrors console output when a log file is configured.
var file io.Writer

// Setup sets the log level and, when conf.File is set, mirrors log output to a
// rotating file. The returned closer releases the file.
func Setup(conf config.LogConf, verbose bool) io.Closer {
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	log.SetReportTimestamp(true)

	if conf.File == "" {
		file = nil
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}

	rotating := &lumberjack.Logger{
		Filename:   conf.File,
		MaxSize:    conf.MaxSizeMB,
		MaxBackups: conf.MaxBackups,
		MaxAge:     conf.MaxAgeDays,
		Compress:   conf.Compress,
	}
	file = rotating
	log.SetOutput(withFile(os.Stderr))
	log.Debugf("Logging to %s", conf.File)
	return rotating
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Redirect sends console output to w until restore is called. The log file
// keeps receiving everything.
func Redirect(w io.Writer) (restore func()) {
	log.SetOutput(withFile(w))
	return func() { log.SetOutput(withFile(os.Stderr)) }
}

func withFile(w io.Writer) io.Writer {
	if file == nil {
		return w
	}
	return io.MultiWriter(w, file)
}
