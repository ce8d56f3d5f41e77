// Package synclog writes the events of each synchronization pass to the audit
// log file, and mirrors them to the console.
package synclog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/sync"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// TimestampFormat is the layout of the timestamp that starts each line of the
// text format.
const TimestampFormat = "2006-01-02 15:04:05"

// Supported values for the log format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// LineFormatter formats entries as `<timestamp> - <message>`. Fields are
// not included.
type LineFormatter struct {
	// TimestampFormat overrides the default timestamp layout.
	TimestampFormat string

	// DisableTimestamp omits the timestamp and separator, which is how lines
	// are printed to the console.
	DisableTimestamp bool
}

// Format implements logrus.Formatter.
func (f LineFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b bytes.Buffer
	if !f.DisableTimestamp {
		layout := f.TimestampFormat
		if layout == "" {
			layout = TimestampFormat
		}
		b.WriteString(entry.Time.Format(layout))
		b.WriteString(" - ")
	}
	b.WriteString(entry.Message)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Sink is a sync.EventSink that writes each event as a log entry. A Sink
// is opened once and shared by every pass. Close releases the log file.
type Sink struct {
	file    afero.File
	loggers []*log.Logger
}

// Open creates a Sink that appends to the log file at `path`, and mirrors
// messages to `console` if it's non-nil. The format is either FormatText or
// FormatJSON, and only applies to the file.
func Open(path, format string, console io.Writer) (*Sink, error) {
	formatter, err := newFormatter(format)
	if err != nil {
		return nil, err
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.WithContext(err, "create log directory")
	}

	f, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.WithContext(err, "open log file")
	}

	sink := &Sink{
		file:    f,
		loggers: []*log.Logger{newLogger(f, formatter)},
	}
	if console != nil {
		sink.loggers = append(sink.loggers,
			newLogger(console, LineFormatter{DisableTimestamp: true}))
	}
	return sink, nil
}

// NewSink creates a Sink that writes to the given writer without owning it.
func NewSink(w io.Writer, format string) (*Sink, error) {
	formatter, err := newFormatter(format)
	if err != nil {
		return nil, err
	}
	return &Sink{loggers: []*log.Logger{newLogger(w, formatter)}}, nil
}

func newFormatter(format string) (log.Formatter, error) {
	switch format {
	case "", FormatText:
		return LineFormatter{}, nil
	case FormatJSON:
		return &log.JSONFormatter{TimestampFormat: TimestampFormat}, nil
	default:
		return nil, errors.NewFriendlyError(
			"Unknown log format %q. Supported formats are %q and %q.",
			format, FormatText, FormatJSON)
	}
}

func newLogger(w io.Writer, formatter log.Formatter) *log.Logger {
	logger := log.New()
	logger.SetOutput(w)
	logger.SetFormatter(formatter)
	logger.SetLevel(log.InfoLevel)
	return logger
}

// Emit implements sync.EventSink.
func (s *Sink) Emit(e sync.Event) {
	fields := log.Fields{"event": e.Type.String()}
	if e.Path != "" {
		fields["path"] = e.Path
	}
	if e.Reason != "" {
		fields["reason"] = e.Reason
	}

	for _, logger := range s.loggers {
		entry := logger.WithTime(e.Time).WithFields(fields)
		if e.IsFailure() {
			entry.Error(e.Message())
		} else {
			entry.Info(e.Message())
		}
	}
}

// Close closes the log file, if the Sink owns one.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	if err := s.file.Close(); err != nil {
		return errors.WithContext(err, fmt.Sprintf("close %s", s.file.Name()))
	}
	return nil
}
