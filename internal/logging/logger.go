package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// traceLevel - уровень zap ниже Debug для TRACE
const traceLevel = zapcore.DebugLevel - 1

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из строки конфигурации (регистр не важен)
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("неизвестный уровень логирования: %q", s)
	}
}

func (l LogLevel) zap() zapcore.Level {
	switch l {
	case TRACE:
		return traceLevel
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Options задаёт вывод логгеров
type Options struct {
	ConsoleLevel LogLevel
	FileLevel    LogLevel
	Format       string // "console" или "json"
	Dir          string // Каталог файлов логов; пусто - без файлов
}

// DefaultOptions - консоль с уровня INFO, без файлов
func DefaultOptions() Options {
	return Options{ConsoleLevel: INFO, FileLevel: DEBUG, Format: "console"}
}

// Logger - логгер компонента поверх zap
type Logger struct {
	component    string
	base         *zap.Logger
	sugar        *zap.SugaredLogger
	consoleLevel zap.AtomicLevel
	fileLevel    zap.AtomicLevel
	file         *os.File
}

var (
	optionsMu     sync.RWMutex
	globalOptions = DefaultOptions()

	defaultLogger = newConsoleLogger("tileworld")
)

// Configure задаёт параметры для логгеров, создаваемых после вызова
func Configure(opts Options) {
	optionsMu.Lock()
	defer optionsMu.Unlock()
	globalOptions = opts
}

func currentOptions() Options {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return globalOptions
}

// NewLogger создаёт логгер компонента с текущими параметрами.
// Если задан каталог, дополнительно пишет JSON в файл <component>_<время>.log.
func NewLogger(component string) (*Logger, error) {
	opts := currentOptions()

	var file *os.File
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("ошибка создания директории логов: %w", err)
		}
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		filename := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", component, timestamp))

		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
		}
		file = f
	}

	if file == nil {
		return newLogger(component, opts, zapcore.Lock(os.Stdout), nil), nil
	}
	l := newLogger(component, opts, zapcore.Lock(os.Stdout), file)
	l.file = file
	return l, nil
}

// NewLoggerWithWriter создаёт логгер, пишущий только в w (удобно для тестов)
func NewLoggerWithWriter(component string, opts Options, w io.Writer) *Logger {
	return newLogger(component, opts, zapcore.AddSync(w), nil)
}

func newLogger(component string, opts Options, console zapcore.WriteSyncer, file io.Writer) *Logger {
	consoleLevel := zap.NewAtomicLevelAt(opts.ConsoleLevel.zap())
	fileLevel := zap.NewAtomicLevelAt(opts.FileLevel.zap())

	cores := []zapcore.Core{zapcore.NewCore(newEncoder(opts.Format), console, consoleLevel)}
	if file != nil {
		cores = append(cores, zapcore.NewCore(newEncoder("json"), zapcore.AddSync(file), fileLevel))
	}

	base := zap.New(zapcore.NewTee(cores...)).Named(component)
	return &Logger{
		component:    component,
		base:         base,
		sugar:        base.Sugar(),
		consoleLevel: consoleLevel,
		fileLevel:    fileLevel,
	}
}

func newEncoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000")
	cfg.EncodeLevel = encodeLevel
	if format == "json" {
		return zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// encodeLevel добавляет к стандартным уровням zap имя TRACE
func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == traceLevel {
		enc.AppendString("TRACE")
		return
	}
	zapcore.CapitalLevelEncoder(l, enc)
}

func newConsoleLogger(component string) *Logger {
	return newLogger(component, DefaultOptions(), zapcore.Lock(os.Stdout), nil)
}

// Component возвращает имя компонента
func (l *Logger) Component() string { return l.component }

// SetLevel меняет уровни на лету
func (l *Logger) SetLevel(consoleLevel, fileLevel LogLevel) {
	l.consoleLevel.SetLevel(consoleLevel.zap())
	l.fileLevel.SetLevel(fileLevel.zap())
}

// Enabled сообщает, будет ли записан уровень хотя бы в один вывод
func (l *Logger) Enabled(level LogLevel) bool {
	return l.base.Core().Enabled(level.zap())
}

// Trace логирует сообщение уровня TRACE
func (l *Logger) Trace(format string, args ...interface{}) {
	if ce := l.base.Check(traceLevel, ""); ce != nil {
		ce.Message = fmt.Sprintf(format, args...)
		ce.Write()
	}
}

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With возвращает логгер с дополнительными полями ключ-значение
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	cp := *l
	cp.sugar = l.sugar.With(keysAndValues...)
	cp.base = cp.sugar.Desugar()
	cp.file = nil // файл закрывает исходный логгер
	return &cp
}

// Close сбрасывает буферы и закрывает файл логов
func (l *Logger) Close() error {
	// Sync для stdout на некоторых ОС возвращает EINVAL; это не ошибка логгера
	_ = l.base.Sync()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// InitDefaultLogger создаёт глобальный логгер для компонента с текущими параметрами
func InitDefaultLogger(component string) error {
	logger, err := NewLogger(component)
	if err != nil {
		return err
	}
	defaultLogger = logger
	return nil
}

// CloseDefaultLogger закрывает глобальный логгер
func CloseDefaultLogger() {
	if defaultLogger != nil {
		_ = defaultLogger.Close()
	}
}

// Trace логирует сообщение уровня TRACE глобальным логгером
func Trace(format string, args ...interface{}) { defaultLogger.Trace(format, args...) }

// Debug логирует сообщение уровня DEBUG глобальным логгером
func Debug(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }

// Info логирует сообщение уровня INFO глобальным логгером
func Info(format string, args ...interface{}) { defaultLogger.Info(format, args...) }

// Warn логирует сообщение уровня WARN глобальным логгером
func Warn(format string, args ...interface{}) { defaultLogger.Warn(format, args...) }

// Error логирует сообщение уровня ERROR глобальным логгером
func Error(format string, args ...interface{}) { defaultLogger.Error(format, args...) }
