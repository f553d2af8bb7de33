package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a JSON logger writing to stdout and, when dir is set, to
// <dir>/<name>/<name>_<timestamp>.log as well. The returned close func
// syncs and closes the file.
func NewLogger(name, level, dir string) (*zap.Logger, func() error, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl)}
	closeFn := func() error { return nil }

	if dir != "" {
		file, err := createLogFile(name, dir)
		if err != nil {
			return nil, nil, err
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(file), lvl))
		closeFn = func() error {
			file.Sync()
			return file.Close()
		}
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Named(sanitize(name))
	return logger, closeFn, nil
}

func createLogFile(name, dir string) (*os.File, error) {
	sanitized := sanitize(name)
	runDir := filepath.Join(dir, sanitized)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(runDir, fmt.Sprintf("%s_%s.log", sanitized, timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	return file, nil
}

func sanitize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
