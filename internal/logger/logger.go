package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig 日志配置
type LoggerConfig struct {
	Verbose    bool
	Silent     bool
	EnableFile bool
	LogDir     string
	Component  string
	// Console 为空时写 stderr
	Console io.Writer
}

// DefaultLoggerConfig 默认日志配置
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		LogDir:    "./logs",
		Component: "static2jxl",
	}
}

// NewLogger 创建新的日志实例
func NewLogger(verbose bool) (*zap.Logger, error) {
	config := DefaultLoggerConfig()
	config.Verbose = verbose
	return NewLoggerWithConfig(config)
}

// consoleLevel 控制台默认只显示WARN及以上，verbose 显示全部，silent 只显示ERROR
func consoleLevel(config *LoggerConfig) zapcore.Level {
	switch {
	case config.Verbose:
		return zapcore.DebugLevel
	case config.Silent:
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// NewLoggerWithConfig 使用配置创建日志实例
func NewLoggerWithConfig(config *LoggerConfig) (*zap.Logger, error) {
	consoleConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    colorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var console io.Writer = os.Stderr
	if config.Console != nil {
		console = config.Console
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(console), consoleLevel(config)),
	}

	if config.EnableFile {
		fileConfig := zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}
		file, err := os.OpenFile(LogFilePath(config, time.Now()), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(file), zapcore.DebugLevel))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// colorLevelEncoder 彩色级别编码器
func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var coloredLevel string
	switch level {
	case zapcore.DebugLevel:
		coloredLevel = color.CyanString("[DEBUG]")
	case zapcore.InfoLevel:
		coloredLevel = color.GreenString("[INFO] ")
	case zapcore.WarnLevel:
		coloredLevel = color.YellowString("[WARN] ")
	case zapcore.ErrorLevel:
		coloredLevel = color.RedString("[ERROR]")
	default:
		coloredLevel = color.MagentaString("[" + level.CapitalString() + "]")
	}
	enc.AppendString(coloredLevel)
}

// LogFilePath 按天滚动的日志文件路径，目录无法创建时退回当前目录
func LogFilePath(config *LoggerConfig, now time.Time) string {
	logDir := config.LogDir
	if logDir == "" {
		logDir = "./logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		logDir = "."
	}
	component := config.Component
	if component == "" {
		component = "static2jxl"
	}
	return filepath.Join(logDir, component+"_"+now.Format("20060102")+".log")
}
