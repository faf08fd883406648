// Package logger builds the zap logger used across ptp: JSON lines into a
// rotated file plus a terse console stream on stderr.
package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Level        string    // file level: debug, info, warn, error
	File         string    // rotated JSON log; empty disables the file core
	JSON         bool      // console output as JSON instead of text
	Console      io.Writer // defaults to os.Stderr
	ConsoleLevel string    // defaults to warn
}

// New builds a logger from opts. The returned func flushes buffered entries.
func New(opts Options) (*zap.Logger, func() error, error) {
	fileLevel, err := parseLevel(opts.Level, zapcore.InfoLevel)
	if err != nil {
		return nil, nil, err
	}
	consoleLevel, err := parseLevel(opts.ConsoleLevel, zapcore.WarnLevel)
	if err != nil {
		return nil, nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	var cores []zapcore.Core
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return nil, nil, fmt.Errorf("logger: create log dir: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), fileLevel))
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleEncoder := jsonEncoder
	if !opts.JSON {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = ""
		cfg.CallerKey = ""
		consoleEncoder = zapcore.NewConsoleEncoder(cfg)
	}
	cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(console)), consoleLevel))

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return l, l.Sync, nil
}

func parseLevel(s string, def zapcore.Level) (zapcore.Level, error) {
	if s == "" {
		return def, nil
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return def, fmt.Errorf("logger: %w", err)
	}
	return lvl, nil
}

// Entry is one decoded line of the JSON log file.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Caller    string         `json:"caller,omitempty"`
	Fields    map[string]any `json:"-"`
}

// Tail returns up to limit entries from the log file, newest first. level
// filters by the encoded level (e.g. "WARN"); empty keeps everything. A
// missing file yields no entries.
func Tail(path, level string, limit int) ([]Entry, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("logger: open %s: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		var e Entry
		if json.Unmarshal(line, &e) != nil {
			continue
		}
		if level != "" && e.Level != level {
			continue
		}
		var raw map[string]any
		if json.Unmarshal(line, &raw) == nil {
			for _, k := range []string{"timestamp", "level", "message", "caller"} {
				delete(raw, k)
			}
			if len(raw) > 0 {
				e.Fields = raw
			}
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("logger: read %s: %w", path, err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
