package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure the process logger.
type Options struct {
	Level      string
	File       string // empty disables file output
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu      sync.Mutex
	current *logrus.Logger
	closer  io.Closer
)

// Init (re)configures the process logger. The terminal belongs to the TUI and to
// command output, so logs only ever go to the rotating file.
func Init(opts Options) (*logrus.Logger, error) {
	mu.Lock()
	defer mu.Unlock()

	l := logrus.New()
	level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		DisableColors:   true,
	})

	if closer != nil {
		_ = closer.Close()
		closer = nil
	}
	if strings.TrimSpace(opts.File) == "" {
		l.SetOutput(io.Discard)
	} else {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, err
		}
		w := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		l.SetOutput(w)
		closer = w
	}
	current = l
	return l, nil
}

// L returns the process logger. Before Init it discards everything.
func L() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		current = Discard()
	}
	return current
}

// Discard returns a logger that writes nowhere (tests, --no-log).
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Close flushes and closes the file writer.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}
