package logutil

import (
	"os"
	"sync"

	"github.com/pingcap/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "text"

	defaultLogMaxSize = 300 // MB
)

// Config carries the logging section of the client config.
type Config struct {
	Level   string     `yaml:"level"`
	Format  string     `yaml:"format"`
	LogFile FileConfig `yaml:"log_file"`
}

// FileConfig enables file output with rotation when Filename is set.
type FileConfig struct {
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max_size"`
	MaxDays    int    `yaml:"max_days"`
	MaxBackups int    `yaml:"max_backups"`
}

var (
	mu        sync.Mutex
	bgLogger  = zap.NewNop()
	hasLogger bool
)

// InitLogger builds the process-wide logger. Safe to call once at bootstrap;
// later calls replace the logger.
func InitLogger(cfg *Config) error {
	level := zapcore.InfoLevel
	levelName := cfg.Level
	if levelName == "" {
		levelName = defaultLogLevel
	}
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return errors.WithMessage(err, "parse log level")
	}

	format := cfg.Format
	if format == "" {
		format = defaultLogFormat
	}
	var encoder zapcore.Encoder
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	switch format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "text", "console":
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return errors.Errorf("unsupported log format: %s", format)
	}

	var sink zapcore.WriteSyncer
	if cfg.LogFile.Filename != "" {
		maxSize := cfg.LogFile.MaxSize
		if maxSize == 0 {
			maxSize = defaultLogMaxSize
		}
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile.Filename,
			MaxSize:    maxSize,
			MaxAge:     cfg.LogFile.MaxDays,
			MaxBackups: cfg.LogFile.MaxBackups,
		})
	} else {
		sink = zapcore.AddSync(os.Stderr)
	}

	logger := zap.New(zapcore.NewCore(encoder, sink, level), zap.AddCaller())

	mu.Lock()
	bgLogger = logger
	hasLogger = true
	mu.Unlock()
	return nil
}

// BgLogger returns the process-wide logger. Before InitLogger it returns a
// logger writing to stderr so early errors are not swallowed.
func BgLogger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !hasLogger {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		bgLogger = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.AddSync(os.Stderr),
			zapcore.InfoLevel,
		))
		hasLogger = true
	}
	return bgLogger
}
