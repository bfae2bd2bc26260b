// Package logger 基于 zap + lumberjack 的全局日志。未调用 Init 时输出到 stderr（console 格式，info 级别）。
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultFileName   = "app.log"
	defaultMaxSizeMB  = 200
	defaultMaxBackups = 10
	defaultMaxAgeDays = 7
)

type LogOption struct {
	Format   string // console / json
	LogDir   string // 为空时只输出到 stderr
	Level    string // debug / info / warn / error
	Compress bool   // 是否压缩轮转后的文件
	FileName string // 默认 app.log
}

var sugar atomic.Pointer[zap.SugaredLogger]

func init() {
	l, _ := build(LogOption{})
	sugar.Store(l.Sugar())
}

// Init 按配置重建全局 logger，可重复调用
func Init(opt LogOption) error {
	l, err := build(opt)
	if err != nil {
		return err
	}
	if old := sugar.Swap(l.Sugar()); old != nil {
		_ = old.Sync()
	}
	return nil
}

func build(opt LogOption) (*zap.Logger, error) {
	level, err := parseLevel(opt.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(opt.Format) {
	case "", "console":
		encoder = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", opt.Format)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if opt.LogDir != "" {
		if err := os.MkdirAll(opt.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir %s: %w", opt.LogDir, err)
		}
		name := opt.FileName
		if name == "" {
			name = defaultFileName
		}
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, name),
			MaxSize:    defaultMaxSizeMB,
			MaxBackups: defaultMaxBackups,
			MaxAge:     defaultMaxAgeDays,
			Compress:   opt.Compress,
			LocalTime:  true,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), nil
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return level, fmt.Errorf("unknown log level %q: %w", s, err)
	}
	return level, nil
}

// L 返回当前全局 SugaredLogger
func L() *zap.SugaredLogger {
	return sugar.Load()
}

func Debugf(template string, args ...any) {
	sugar.Load().Debugf(template, args...)
}

func Infof(template string, args ...any) {
	sugar.Load().Infof(template, args...)
}

func Warnf(template string, args ...any) {
	sugar.Load().Warnf(template, args...)
}

func Errorf(template string, args ...any) {
	sugar.Load().Errorf(template, args...)
}

func Sync() {
	_ = sugar.Load().Sync()
}
