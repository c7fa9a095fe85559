package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options настройки файлового логгера.
type Options struct {
	File       string // пусто — логи в stderr
	MaxSizeMB  int
	MaxBackups int
	Debug      bool
}

// New создаёт SugaredLogger. Терминал занят интерфейсом, поэтому по умолчанию
// пишем в файл с ротацией.
func New(opts Options) (*zap.SugaredLogger, error) {
	var encCfg zapcore.EncoderConfig
	level := zapcore.InfoLevel
	if opts.Debug {
		encCfg = zap.NewDevelopmentEncoderConfig()
		level = zapcore.DebugLevel
	} else {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var ws zapcore.WriteSyncer
	if opts.File == "" {
		ws = zapcore.Lock(os.Stderr)
	} else {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, err
		}
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    max(opts.MaxSizeMB, 1), // megabytes
			MaxBackups: opts.MaxBackups,
			MaxAge:     28, //days
		})
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, level)
	return zap.New(core, zap.AddCaller()).Sugar(), nil
}
