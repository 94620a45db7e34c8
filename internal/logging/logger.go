// Package logging configures the application logger.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SystemName is the event source written on every log line.
const SystemName = "taskmaster"

// Logger is the global logger. Until Setup runs it discards everything
// below Warn level and writes to stderr.
var Logger = newDefaultLogger()

var setupOnce sync.Once

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&CustomFormatter{SystemName: SystemName})
	l.SetLevel(logrus.WarnLevel)
	return l
}

// CustomFormatter writes one line per entry:
// Date, Time, Event Source, Event Type, Event ID, Message and, when present, fields and caller.
type CustomFormatter struct {
	SystemName string
}

// Format implements logrus.Formatter.
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	t := entry.Time
	fmt.Fprintf(b, "Date: %s, Time: %s, ", t.Format("2006-01-02"), t.Format("15:04:05"))
	fmt.Fprintf(b, "Event Source: %s, ", f.SystemName)
	fmt.Fprintf(b, "Event Type: %s, ", strings.ToUpper(entry.Level.String()))
	fmt.Fprintf(b, "Event ID: %s, ", uuid.New().String())
	fmt.Fprintf(b, "Message: %s", entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, ", %s: %v", k, entry.Data[k])
		}
	}

	if entry.HasCaller() {
		fmt.Fprintf(b, ", Location: %s:%d in %s", filepath.Base(entry.Caller.File), entry.Caller.Line, entry.Caller.Function)
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Options controls Setup.
type Options struct {
	// File is the log file path; rotated by size.
	File string

	// Debug lowers the level to Debug and mirrors output to Stderr.
	Debug bool

	// Stderr receives mirrored output in debug mode.
	Stderr io.Writer
}

// Setup points the global logger at a rotating log file.
// Only the first call has an effect.
func Setup(opts Options) {
	setupOnce.Do(func() {
		configure(Logger, opts)
		Logger.Debugf("Event ID: LOGGER_INITIALIZED, Description: Logger initialized, output to: %s", opts.File)
	})
}

func configure(l *logrus.Logger, opts Options) {
	var out io.Writer = io.Discard
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			l.Warnf("Event ID: LOG_DIR_CREATE_FAILED, Description: Failed to create log directory: %v", err)
		} else {
			out = &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			}
		}
	}

	level := logrus.InfoLevel
	if opts.Debug {
		level = logrus.DebugLevel
		if opts.Stderr != nil {
			out = io.MultiWriter(out, opts.Stderr)
		}
	}

	l.SetOutput(out)
	l.SetFormatter(&CustomFormatter{SystemName: SystemName})
	l.SetLevel(level)
	l.SetReportCaller(opts.Debug)
}
