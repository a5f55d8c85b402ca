package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Marzie79/vr-visual-search/internal/config"
)

// Init initializes and returns the session logger. Structured JSON entries
// go to a rotating file under logDir; a human-readable copy of everything
// from Debug up goes to the console.
func Init(logDir string, cfg config.LoggingConfig) (*zap.Logger, error) {
	fileCore, err := newFileCore(logDir, cfg)
	if err != nil {
		return nil, err
	}

	// Both cores receive every entry and decide independently whether to
	// write it, based on their LevelEnabler.
	core := zapcore.NewTee(
		fileCore,
		newConsoleCore(),
	)

	return zap.New(core, zap.AddCaller()), nil
}

// newFileCore creates a core that writes JSON entries to a rotating file
// named after the session date, e.g. '2025-07-30-session.log'.
func newFileCore(logDir string, cfg config.LoggingConfig) (zapcore.Core, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:   "message",
		LevelKey:     "level",
		TimeKey:      "time",
		CallerKey:    "caller",
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	fileName := filepath.Join(logDir, fmt.Sprintf("%s-session.log", time.Now().Format("2006-01-02")))

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    cfg.MaxSize, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	})

	levelEnabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.DebugLevel
	})

	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		writer,
		levelEnabler,
	), nil
}

// newConsoleCore creates a core that writes to the console with a more
// readable format.
func newConsoleCore() zapcore.Core {
	levelEnabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.DebugLevel
	})

	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder // Add color to levels

	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEncoderConfig),
		zapcore.AddSync(os.Stdout),
		levelEnabler,
	)
}
