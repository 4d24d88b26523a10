package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with the text/JSON dual-format setup the CLI needs.
type Logger struct {
	logger zerolog.Logger
	level  zerolog.Level
	format string
	output io.Writer
}

// LogLevel is the logger's configured verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat selects console or machine-readable output.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// NewLogger creates a logger at info level, text format, to stdout.
func NewLogger() *Logger {
	return NewLoggerWithConfig(LogLevelInfo, LogFormatText, os.Stdout)
}

// NewLoggerWithConfig creates a logger with explicit level/format/output.
func NewLoggerWithConfig(level LogLevel, format LogFormat, output io.Writer) *Logger {
	zerolog.SetGlobalLevel(parseLogLevel(level))

	var logger zerolog.Logger
	switch format {
	case LogFormatJSON:
		logger = zerolog.New(output).With().Timestamp().Logger()
	default:
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if i == nil {
					return "????"
				}
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\x1b[36mDBG\x1b[0m"
					case "info":
						return "\x1b[32mINF\x1b[0m"
					case "warn":
						return "\x1b[33mWRN\x1b[0m"
					case "error":
						return "\x1b[31mERR\x1b[0m"
					case "fatal":
						return "\x1b[31mFTL\x1b[0m"
					default:
						return strings.ToUpper(ll)
					}
				}
				return strings.ToUpper(fmt.Sprintf("%v", i))
			},
			FormatMessage: func(i interface{}) string {
				if i == nil {
					return ""
				}
				return fmt.Sprintf("%s", i)
			},
			FormatFieldName: func(i interface{}) string {
				return fmt.Sprintf("\x1b[36m%s\x1b[0m=", i)
			},
			FormatFieldValue: func(i interface{}) string {
				return fmt.Sprintf("\x1b[32m%v\x1b[0m", i)
			},
		}
		logger = zerolog.New(output).With().Timestamp().Logger()
	}

	return &Logger{logger: logger, level: parseLogLevel(level), format: string(format), output: output}
}

// NewFileLogger creates a logger that writes to both stdout and logPath.
func NewFileLogger(level LogLevel, format LogFormat, logPath string) (*Logger, error) {
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	return NewLoggerWithConfig(level, format, multiWriter), nil
}

func parseLogLevel(level LogLevel) zerolog.Level {
	switch level {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelInfo:
		return zerolog.InfoLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	if len(fields) > 0 {
		l.logger.Debug().Fields(fields[0]).Msg(msg)
	} else {
		l.logger.Debug().Msg(msg)
	}
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	if len(fields) > 0 {
		l.logger.Info().Fields(fields[0]).Msg(msg)
	} else {
		l.logger.Info().Msg(msg)
	}
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	if len(fields) > 0 {
		l.logger.Warn().Fields(fields[0]).Msg(msg)
	} else {
		l.logger.Warn().Msg(msg)
	}
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	if len(fields) > 0 {
		l.logger.Error().Fields(fields[0]).Msg(msg)
	} else {
		l.logger.Error().Msg(msg)
	}
}

func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	if len(fields) > 0 {
		l.logger.Fatal().Fields(fields[0]).Msg(msg)
	} else {
		l.logger.Fatal().Msg(msg)
	}
}

// Debugf/Warnf/Infof adapt the printf-style Logf callbacks the resolver/kb/
// regglob/extractor/driver packages take, onto this logger.
func (l *Logger) Debugf(format string, args ...interface{}) { l.logger.Debug().Msg(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logger.Warn().Msg(fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logger.Info().Msg(fmt.Sprintf(format, args...)) }

// WithField returns a derived logger carrying one extra structured field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	newLogger := l.logger.With().Interface(key, value).Logger()
	return &Logger{logger: newLogger, level: l.level, format: l.format, output: l.output}
}

// WithFields returns a derived logger carrying several extra fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newLogger := l.logger.With().Fields(fields).Logger()
	return &Logger{logger: newLogger, level: l.level, format: l.format, output: l.output}
}

// SetLevel adjusts both this logger's and zerolog's global level.
func (l *Logger) SetLevel(level LogLevel) {
	l.level = parseLogLevel(level)
	zerolog.SetGlobalLevel(l.level)
}

// LogResolve logs one artifact resolution's outcome against a partition.
func (l *Logger) LogResolve(artifact, partition string, empty bool) {
	fields := map[string]interface{}{"artifact": artifact, "partition": partition, "empty": empty}
	l.Info("artifact resolved", fields)
}

// LogExtract logs one artifact extraction's outcome against a partition.
func (l *Logger) LogExtract(artifact, partition string, duration time.Duration, wrote bool, err error) {
	fields := map[string]interface{}{
		"artifact":  artifact,
		"partition": partition,
		"duration":  duration.String(),
		"wrote":     wrote,
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("artifact extraction failed", fields)
		return
	}
	l.Info("artifact extraction completed", fields)
}

// LogSystem logs host runtime information, useful at CLI startup.
func (l *Logger) LogSystem() {
	l.Info("system information", map[string]interface{}{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"go_version": runtime.Version(),
		"num_cpu":    runtime.NumCPU(),
	})
}

// Close closes this logger's output writer when that writer is an
// io.Closer. NewFileLogger's log file sits behind an io.MultiWriter, which
// is not one, so Close leaves that file open.
func (l *Logger) Close() error {
	if closer, ok := l.output.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

var globalLogger *Logger

// InitGlobalLogger installs the process-wide default logger.
func InitGlobalLogger(level LogLevel, format LogFormat) {
	globalLogger = NewLoggerWithConfig(level, format, os.Stdout)
}

// GetGlobalLogger returns the process-wide logger, creating a default one on
// first use.
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewLogger()
	}
	return globalLogger
}

func Debug(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Error(msg, fields...) }
func Fatal(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Fatal(msg, fields...) }
