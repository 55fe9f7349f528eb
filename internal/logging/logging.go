// Package logging はlogrusのロガーを設定から組み立てる
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"hikyaku/internal/config"
)

// New は設定に従ったロガーを作成する（出力先は標準エラー）
func New(cfg config.LogConfig) (*logrus.Logger, error) {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput は出力先を指定してロガーを作成する
func NewWithOutput(cfg config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("ログレベルの解析に失敗: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("未対応のログ形式: %s", cfg.Format)
	}

	return logger, nil
}

// Discard は何も出力しないロガーを返す（テスト用）
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
