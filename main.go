package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"hikyaku/internal/config"
	"hikyaku/internal/logging"
	"hikyaku/internal/server"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// 最後のコマンドライン引数を配信ルートとする（例: --directory /tmp/）
	if len(os.Args) > 1 {
		cfg.Files.Root = os.Args[len(os.Args)-1]
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("ロガーの作成に失敗しました: %v", err)
	}
	gin.SetMode(gin.ReleaseMode)

	// サーバーを作成
	srv := server.New(cfg, logger)

	// コンテキストを作成
	ctx := context.Background()

	// サーバーを起動
	if err := srv.Start(ctx); err != nil {
		logger.WithError(err).Fatal("サーバーの起動に失敗しました")
	}
}
