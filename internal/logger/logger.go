// internal/logger/logger.go
// zerolog 全域 Logger 設定

package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"welcome-mailer/internal/config"
)

// Setup 設定全域 Logger
// 正式環境輸出 JSON，其餘環境使用 console 格式
func Setup(cfg *config.Config) {
	SetupWithWriter(cfg, os.Stderr)
}

// SetupWithWriter 設定全域 Logger 並指定輸出目標
func SetupWithWriter(cfg *config.Config, w io.Writer) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.IsProduction() {
		log.Logger = zerolog.New(w).With().Timestamp().Str("service", "welcome-mailer").Logger()
		return
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
}
