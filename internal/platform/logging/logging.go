// Package logging builds the process-wide zerolog logger. In development it
// writes human-readable console output; otherwise JSON goes to stdout and,
// when a log file is configured, to a size-rotated file as well.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Dev        bool
	File       string // empty disables the file sink
	MaxSizeMB  int
	MaxBackups int
}

func New(opts Options) zerolog.Logger {
	if opts.Dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	var w io.Writer = os.Stdout
	if opts.File != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		})
	}
	return zerolog.New(w).With().Timestamp().Logger()
}
