package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

// ============================================================
// Logger Builder
// ============================================================

type Build struct {
	writer io.Writer
	path   string
	level  zerolog.Level
	pretty bool
}

type Data struct {
	LogFile *os.File
	Logger  zerolog.Logger
}

func New() *Build {
	return &Build{level: zerolog.InfoLevel}
}

func (b *Build) FromPath(path string) *Build {
	b.path = path
	return b
}

func (b *Build) FromWriter(w io.Writer) *Build {
	b.writer = w
	return b
}

// WithLevel принимает имя уровня (debug, info, warn, error). Пустое или неизвестное даёт info.
func (b *Build) WithLevel(name string) *Build {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	b.level = lvl
	return b
}

// Pretty включает человекочитаемый вывод в консоль (для development).
func (b *Build) Pretty(on bool) *Build {
	b.pretty = on
	return b
}

func (b *Build) Make() (*Data, error) {
	data := &Data{}
	var w io.Writer = os.Stdout
	if b.writer != nil {
		w = b.writer
	}
	if b.path != "" {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		data.LogFile = f
		w = zerolog.SyncWriter(f)
	} else if b.pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	data.Logger = zerolog.New(w).Level(b.level).With().Timestamp().Logger()
	return data, nil
}

// Close закрывает файл лога, если он был открыт.
func (d *Data) Close() error {
	if d == nil || d.LogFile == nil {
		return nil
	}
	return d.LogFile.Close()
}
