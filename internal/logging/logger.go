// internal/logging/logger.go
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modem-monitor/internal/config"
)

// Command classifies a log record.
type Command string

const (
	Notice     Command = "NOTICE"
	Info       Command = "INFO"
	Data       Command = "DATA"
	Connection Command = "CONNECTION"
	Write      Command = "WRITE"
	Read       Command = "READ"
	Exception  Command = "EXCEPTION"
)

// Unattributed field values.
const (
	NoStage   = -1
	NoAddress = "none"
)

// StageSource is anything whose current stage attributes a record.
type StageSource interface {
	Stage() int
}

// AddressSource is anything whose address attributes a record.
type AddressSource interface {
	Address() string
}

// Logger writes command-tagged records.
//
// Attribution is carried by value: WithModem and WithConnection return
// child loggers and never touch the parent. The stage is read from the
// source when the record is written, so a child created before a stage
// advance reports the new stage.
//
// A nil *Logger discards everything.
type Logger struct {
	zl    zerolog.Logger
	modem StageSource
	conn  AddressSource
}

// New builds the process logger from configuration.
func New(cfg config.LoggingConfig, service string) (*Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		lv, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("logging: level %q: %w", cfg.Level, err)
		}
		level = lv
	}

	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()

	return FromZerolog(zl), nil
}

// FromZerolog wraps an existing zerolog logger.
func FromZerolog(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return FromZerolog(zerolog.Nop())
}

// Zerolog exposes the underlying logger for components that log free-form.
func (l *Logger) Zerolog() *zerolog.Logger {
	if l == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return &l.zl
}

// With returns a child carrying one extra string field.
func (l *Logger) With(key, value string) *Logger {
	if l == nil {
		return nil
	}
	c := *l
	c.zl = l.zl.With().Str(key, value).Logger()
	return &c
}

// WithModem returns a child attributed to m.
func (l *Logger) WithModem(m StageSource) *Logger {
	if l == nil {
		return nil
	}
	c := *l
	c.modem = m
	return &c
}

// WithConnection returns a child attributed to s.
func (l *Logger) WithConnection(s AddressSource) *Logger {
	if l == nil {
		return nil
	}
	c := *l
	c.conn = s
	return &c
}

// ---- commands ----

func (l *Logger) Notice(format string, args ...any) {
	l.emit(Notice, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Info(format string, args ...any) {
	l.emit(Info, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Connection(format string, args ...any) {
	l.emit(Connection, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Write(format string, args ...any) {
	l.emit(Write, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Read(format string, args ...any) {
	l.emit(Read, fmt.Sprintf(format, args...), nil)
}

// Data logs a binary payload as uppercase hex.
func (l *Logger) Data(b []byte) {
	l.emit(Data, fmt.Sprintf("%X", b), nil)
}

// Exception logs err with the type, code and message of its root cause.
func (l *Logger) Exception(err error) {
	if err == nil {
		return
	}
	root := rootCause(err)
	msg := fmt.Sprintf("class: %T, code: %d, message: \"%s\"", root, ErrorCode(err), err.Error())
	l.emit(Exception, msg, err)
}

func (l *Logger) emit(cmd Command, msg string, err error) {
	if l == nil {
		return
	}

	var ev *zerolog.Event
	switch cmd {
	case Exception:
		ev = l.zl.Error().Err(err)
	default:
		ev = l.zl.Info()
	}
	if ev == nil {
		return
	}

	stage := NoStage
	if l.modem != nil {
		stage = l.modem.Stage()
	}
	address := NoAddress
	if l.conn != nil {
		address = l.conn.Address()
	}

	ev.Str("command", string(cmd)).
		Int("stage", stage).
		Str("address", address).
		Msg(msg)
}

// ErrorCode extracts a numeric code from err.
// Errors exposing Code() int win over system errno values; 0 means none.
func ErrorCode(err error) int {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code()
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
