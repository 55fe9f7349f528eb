// Package main はhikyakuサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"hikyaku/internal/config"
	"hikyaku/internal/logging"
	"hikyaku/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		configPath = flag.String("config", "", "設定ファイル (.yaml / .yml / .toml)")
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 127.0.0.1)")
		port       = flag.Int("port", 0, "サーバーのポート (デフォルト: 4221)")
		directory  = flag.String("directory", "", "配信ルートディレクトリ")
		status     = flag.Bool("status", false, "状態確認サーバーを有効にする")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("hikyaku")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション] [配信ルート]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *directory != "" {
		cfg.Files.Root = *directory
	}
	// 位置引数があれば最後のものを配信ルートとする
	if flag.NArg() > 0 {
		cfg.Files.Root = flag.Arg(flag.NArg() - 1)
	}
	if *status {
		cfg.Status.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定の検証に失敗しました: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("ロガーの作成に失敗しました: %v", err)
	}
	gin.SetMode(gin.ReleaseMode)

	srv := server.New(cfg, logger)

	// コンテキストを作成
	ctx := context.Background()

	// サーバーを起動
	logger.Infof("hikyaku サーバーを起動します: %s", cfg.ServerAddress())
	if err := srv.Start(ctx); err != nil {
		logger.WithError(err).Fatal("サーバーの起動に失敗しました")
	}
}
