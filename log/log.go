package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Plugin = zapcore.Core

// NewLogger builds a logger on plugin. The default caller and stack trace
// options are always applied.
func NewLogger(plugin zapcore.Core, options ...zap.Option) *zap.Logger {
	return zap.New(plugin, append(DefaultOption(), options...)...)
}

func NewPlugin(enc zapcore.Encoder, writer zapcore.WriteSyncer, enabler zapcore.LevelEnabler) Plugin {
	return zapcore.NewCore(enc, writer, enabler)
}

// NewStderrPlugin writes human readable lines to stderr.
func NewStderrPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(ConsoleEncoder(), zapcore.Lock(zapcore.AddSync(os.Stderr)), enabler)
}

// NewFilePlugin writes to a rotating file. lumberjack exposes no Sync, so the
// returned closer must be closed before exit to flush the file.
func NewFilePlugin(
	filePath string, enabler zapcore.LevelEnabler) (Plugin, io.Closer) {
	var writer = DefaultLumberjackLogger()
	writer.Filename = filePath

	return NewPlugin(JSONEncoder(), zapcore.AddSync(writer), enabler), writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New parses level ("DEBUG", "info", ...) and returns a logger writing to
// stderr, plus JSON lines to filePath when it is set. Command output owns
// stdout.
func New(level, filePath string) (*zap.Logger, io.Closer, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	plugin := NewStderrPlugin(lvl)
	var closer io.Closer = nopCloser{}
	if filePath != "" {
		var filePlugin Plugin
		filePlugin, closer = NewFilePlugin(filePath, lvl)
		plugin = zapcore.NewTee(plugin, filePlugin)
	}

	return NewLogger(plugin), closer, nil
}
