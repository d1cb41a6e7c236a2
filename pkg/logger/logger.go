// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// contextKey 上下文键
type contextKey string

// RequestIDKey 请求ID上下文键
const RequestIDKey contextKey = "request_id"

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器，仅首次调用生效
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			output = os.Stdout
			if cfg.FilePath != "" {
				if f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
					output = f
				}
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			timeFormat := cfg.TimeFormat
			if timeFormat == "" {
				timeFormat = time.RFC3339
			}
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: timeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// EngineLogger 分房引擎专用日志器
type EngineLogger struct {
	base *zerolog.Logger
}

// NewEngineLogger 创建分房引擎日志器
func NewEngineLogger() *EngineLogger {
	l := Get().With().Str("component", "assigner").Logger()
	return &EngineLogger{base: &l}
}

// NewNopEngineLogger 创建不输出的日志器（测试用）
func NewNopEngineLogger() *EngineLogger {
	l := zerolog.Nop()
	return &EngineLogger{base: &l}
}

// With 附加固定字段
func (l *EngineLogger) With(key, value string) *EngineLogger {
	child := l.base.With().Str(key, value).Logger()
	return &EngineLogger{base: &child}
}

// OperationStart 记录操作开始
func (l *EngineLogger) OperationStart(op string, clients, rooms int) {
	l.base.Debug().
		Str("operation", op).
		Int("clients", clients).
		Int("rooms", rooms).
		Msg("开始分房操作")
}

// OperationComplete 记录操作完成
func (l *EngineLogger) OperationComplete(op string, duration time.Duration, fields map[string]interface{}) {
	l.base.Info().
		Str("operation", op).
		Dur("duration", duration).
		Fields(fields).
		Msg("分房操作完成")
}

// ConstraintViolation 记录约束违反
func (l *EngineLogger) ConstraintViolation(constraint, details string) {
	l.base.Debug().
		Str("constraint", constraint).
		Str("details", details).
		Msg("约束违反")
}

// PlacementFailed 记录分配失败
func (l *EngineLogger) PlacementFailed(clientID, reason string) {
	l.base.Warn().
		Str("client_id", clientID).
		Str("reason", reason).
		Msg("客户分房失败")
}

// GenerationBest 记录优化器每代最优适应度
func (l *EngineLogger) GenerationBest(generation int, fitness float64) {
	l.base.Debug().
		Int("generation", generation).
		Float64("fitness", fitness).
		Msg("本代最优适应度")
}
