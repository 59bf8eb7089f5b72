package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"typeflow/misc"
)

type LoggerConfig struct {
	Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	Mode        string `yaml:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig `yaml:"file"`
	ConsoleLogger LoggerConfig `yaml:"console"`
}

// consoleEncoder builds the encoder for one console stream, with colors when
// the stream is an interactive terminal.
func consoleEncoder(stream *os.File, filterVerbose bool) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if EnableColorOutput(stream) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if filterVerbose {
		return newEncoder(ec)
	}
	return zapcore.NewConsoleEncoder(ec)
}

func openLog(fname, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if mode == "append" {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(fname, flags, 0644)
}

// Prepare builds the program logger: info and below to stdout, errors to
// stderr, and optionally everything to a file. When a report is requested the
// file logger is forced to full debug output so the report archive captures a
// complete run.
func (conf *LoggingConfig) Prepare(rpt *Report) (*zap.Logger, error) {

	var lowCore, highCore zapcore.Core

	errorsOnly := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	below := func(floor zapcore.Level) zap.LevelEnablerFunc {
		return func(lvl zapcore.Level) bool {
			return floor <= lvl && lvl < zapcore.ErrorLevel
		}
	}

	switch conf.ConsoleLogger.Level {
	case "normal":
		lowCore = zapcore.NewCore(consoleEncoder(os.Stdout, false), zapcore.Lock(os.Stdout), below(zapcore.InfoLevel))
		highCore = zapcore.NewCore(consoleEncoder(os.Stderr, true), zapcore.Lock(os.Stderr), errorsOnly)
	case "debug":
		lowCore = zapcore.NewCore(consoleEncoder(os.Stdout, false), zapcore.Lock(os.Stdout), below(zapcore.DebugLevel))
		highCore = zapcore.NewCore(consoleEncoder(os.Stderr, true), zapcore.Lock(os.Stderr), errorsOnly)
	default:
		lowCore = zapcore.NewNopCore()
		highCore = zapcore.NewNopCore()
	}

	level, mode := conf.FileLogger.Level, conf.FileLogger.Mode
	if rpt != nil {
		level, mode = "debug", "overwrite"
	}

	fileCore := zapcore.NewNopCore()
	var redirected string

	if level == "debug" || level == "normal" {
		floor := zap.InfoLevel
		if level == "debug" {
			floor = zap.DebugLevel
		}

		// Crash output goes next to the log so panics survive in the report.
		var ef *os.File
		if f, err := openLog(filepath.Join(filepath.Dir(conf.FileLogger.Destination), misc.GetAppName()+"-panic.log"), mode); err == nil {
			ef = f
		} else if f, err := os.CreateTemp("", misc.GetAppName()+"-panic.*.log"); err == nil {
			ef = f
		}
		if ef != nil {
			debug.SetCrashOutput(ef, debug.CrashOptions{})
			rpt.Store("panic.log", ef.Name())
			ef.Close()
		}

		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		if f, err := openLog(conf.FileLogger.Destination, mode); err == nil {
			fileCore = zapcore.NewCore(enc, zapcore.Lock(f), zap.NewAtomicLevelAt(floor))
			rpt.Store("final.log", f.Name())
		} else if f, err = os.CreateTemp("", misc.GetAppName()+".*.log"); err == nil {
			redirected = f.Name()
			fileCore = zapcore.NewCore(enc, zapcore.Lock(f), zap.NewAtomicLevelAt(floor))
			rpt.Store("final.log", redirected)
		} else {
			return nil, fmt.Errorf("unable to access file log destination (%s): %w", conf.FileLogger.Destination, err)
		}
	}

	log := zap.New(zapcore.NewTee(highCore, lowCore, fileCore), zap.AddCaller())
	if redirected != "" {
		log.Warn("Log file was redirected to new location", zap.String("location", redirected))
	}
	return log.Named(misc.GetAppName()), nil
}

// Console error entries print the short message only, without the verbose
// chain %+v would produce.

type consoleEnc struct {
	zapcore.Encoder
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return consoleEnc{zapcore.NewConsoleEncoder(cfg)}
}

func (c consoleEnc) Clone() zapcore.Encoder {
	return consoleEnc{c.Encoder.Clone()}
}

func (c consoleEnc) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	flat := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			e := f.Interface.(error)
			f.Interface = errors.New(e.Error())
		}
		flat = append(flat, f)
	}
	return c.Encoder.EncodeEntry(ent, flat)
}
