// Package logger is the process-wide zap logger with printf-style helpers.
package logger

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	atom  = zap.NewAtomicLevelAt(zap.InfoLevel)
	sugar atomic.Pointer[zap.SugaredLogger]
)

func init() {
	install(consoleCore())
}

func encoder(color bool) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	ec.CallerKey = "caller"
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func consoleCore() zapcore.Core {
	return zapcore.NewCore(encoder(true), zapcore.Lock(os.Stderr), atom)
}

// install swaps the global logger; goroutines already logging keep working.
func install(cores ...zapcore.Core) {
	var core zapcore.Core
	switch len(cores) {
	case 0:
		core = zapcore.NewNopCore()
	case 1:
		core = cores[0]
	default:
		core = zapcore.NewTee(cores...)
	}
	sugar.Store(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar())
}

// SetLevel sets the global log level. Unknown names mean debug.
func SetLevel(l string) {
	switch strings.ToUpper(strings.TrimSpace(l)) {
	case "DEBUG":
		atom.SetLevel(zap.DebugLevel)
	case "INFO", "":
		atom.SetLevel(zap.InfoLevel)
	case "WARN", "WARNING":
		atom.SetLevel(zap.WarnLevel)
	case "ERROR":
		atom.SetLevel(zap.ErrorLevel)
	default:
		atom.SetLevel(zap.DebugLevel)
	}
}

// Level reports the current level name in lower case.
func Level() string { return atom.Level().String() }

// Rotation controls the size-based rotation of the log file.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
}

// SetOutput writes uncolored entries to path, rotated by size, and keeps the
// colored stderr core when console is set. Services have no console.
func SetOutput(path string, rot Rotation, console bool) error {
	var cores []zapcore.Core
	if console {
		cores = append(cores, consoleCore())
	}
	if path != "" {
		if rot.MaxSizeMB <= 0 {
			rot.MaxSizeMB = 1
		}
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    rot.MaxSizeMB,
			MaxBackups: rot.MaxBackups,
		})
		cores = append(cores, zapcore.NewCore(encoder(false), w, atom))
	}
	install(cores...)
	return nil
}

// SetWriter routes all output to w without colors. The monitor UI uses it to
// keep log lines off the terminal it draws on.
func SetWriter(w io.Writer) {
	install(zapcore.NewCore(encoder(false), zapcore.AddSync(w), atom))
}

// Sync flushes buffered log entries.
func Sync() {
	_ = sugar.Load().Sync()
}

func Debug(format string, v ...interface{}) { sugar.Load().Debugf(format, v...) }

func Info(format string, v ...interface{}) { sugar.Load().Infof(format, v...) }

func Warn(format string, v ...interface{}) { sugar.Load().Warnf(format, v...) }

func Error(format string, v ...interface{}) { sugar.Load().Errorf(format, v...) }

func Fatal(format string, v ...interface{}) { sugar.Load().Fatalf(format, v...) }
