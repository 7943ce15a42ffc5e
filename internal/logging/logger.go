package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLevel 是未显式传入级别时读取的环境变量。
const EnvLevel = "PLANKTAX_LOG_LEVEL"

// ParseLevel 解析 debug/info/warn/error；空串视为 info。
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("未知日志级别 %q（可选 debug/info/warn/error）", s)
	}
}

// Init 初始化全局 logger 并返回它：日志一律写 w（CLI 传 stderr，stdout 只留给结果输出）。
// level 为空时读取 PLANKTAX_LOG_LEVEL。
func Init(level string, w io.Writer) (zerolog.Logger, error) {
	if strings.TrimSpace(level) == "" {
		level = os.Getenv(EnvLevel)
	}
	lv, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	zerolog.SetGlobalLevel(lv)
	log.Logger = New(w)
	return log.Logger, nil
}

// New 返回写到 w 的 console logger。
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
}
