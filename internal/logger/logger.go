package logger

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process logger. It discards everything until Init is called.
var Log = zap.NewNop()

// Config controls level and file rotation
type Config struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	// Console also writes JSON lines to stderr
	Console bool `mapstructure:"console"`
}

// Init builds the process logger from cfg and installs it as Log and zap's global
func Init(cfg Config) (*zap.Logger, error) {
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	Log = l
	zap.ReplaceGlobals(l)
	return l, nil
}

// New builds a logger without touching the globals
func New(cfg Config) (*zap.Logger, error) {
	level := new(zapcore.Level)
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}

	core := zapcore.NewCore(getEncoder(), getLogWriter(cfg), level)
	return zap.New(core, zap.AddCaller()), nil
}

func getEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func getLogWriter(cfg Config) zapcore.WriteSyncer {
	var syncers []zapcore.WriteSyncer
	if cfg.Console || cfg.Filename == "" {
		syncers = append(syncers, zapcore.AddSync(os.Stderr))
	}
	if cfg.Filename != "" {
		fileSyncer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
		syncers = append(syncers, &zapcore.BufferedWriteSyncer{
			WS:            fileSyncer,
			Size:          256 * 1024,
			FlushInterval: 5 * time.Second,
		})
	}
	return zapcore.NewMultiWriteSyncer(syncers...)
}

// Sync flushes any buffered log entries
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
