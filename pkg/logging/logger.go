// Package logging 基于 zerolog 构建 Logger，由调用方注入 engine、pipeline 等组件。
//
//	logger := logging.New(logging.Config{Level: "debug", Format: "console"})
//	eng, _ := engine.New(items, users, cfg, engine.WithLogger(logger))
//
// 不设置全局 Logger；未注入时各组件使用 zerolog.Nop()。
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config 是日志配置。
type Config struct {
	// Level: trace / debug / info / warn / error / disabled，默认 info
	Level string `yaml:"level" json:"level"`
	// Format: json / console，默认 json
	Format string `yaml:"format" json:"format"`
	// Caller 输出调用位置
	Caller bool `yaml:"caller" json:"caller"`
	// Output 默认 os.Stderr
	Output io.Writer `yaml:"-" json:"-"`
}

// New 按配置创建 Logger。
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// ParseLevel 将字符串转为 zerolog.Level，无法识别时返回 info。
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Timed 记录一次操作的耗时，用于 defer：
//
//	defer logging.Timed(logger, "recall", time.Now())
func Timed(logger zerolog.Logger, op string, start time.Time) {
	logger.Debug().Str("op", op).Dur("took", time.Since(start)).Msg("done")
}
