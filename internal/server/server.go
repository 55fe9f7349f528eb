package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"

	"hikyaku/internal/config"
	"hikyaku/internal/files"
	"hikyaku/internal/request"
	"hikyaku/internal/response"
	"hikyaku/internal/router"
)

// shutdownTimeout は処理中の接続の終了を待つ時間
const shutdownTimeout = 5 * time.Second

// HandlerIOError はハンドラ内のファイル入出力の失敗を表す
// 接続はレスポンスを送らずに終了する
type HandlerIOError struct {
	Err error
}

func (e *HandlerIOError) Error() string {
	return fmt.Sprintf("ハンドラの入出力に失敗: %v", e.Err)
}

func (e *HandlerIOError) Unwrap() error {
	return e.Err
}

// Server は1接続1リクエストでHTTPを処理するTCPサーバー
type Server struct {
	config     *config.Config
	logger     *logrus.Logger
	router     *router.Router
	stats      *Stats
	instanceID string
	startedAt  time.Time

	mu             sync.Mutex
	listener       net.Listener
	statusListener net.Listener
	statusServer   *http.Server
	conns          map[net.Conn]struct{}
	closing        bool
	wg             sync.WaitGroup
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, logger *logrus.Logger) *Server {
	s := &Server{
		config:     cfg,
		logger:     logger,
		stats:      NewStats(),
		instanceID: uuid.NewString(),
		startedAt:  time.Now(),
		conns:      make(map[net.Conn]struct{}),
	}
	s.router = NewHandlers(files.NewRoot(cfg.Files.Root), logger).Routes()
	return s
}

// Listen はHTTPサーバー（と有効なら状態確認サーバー）のソケットを開く
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.ServerAddress())
	if err != nil {
		return fmt.Errorf("リッスンに失敗 (%s): %w", s.config.ServerAddress(), err)
	}
	if s.config.Server.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.Server.MaxConnections)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	if s.config.Status.Enabled {
		if err := s.listenStatus(); err != nil {
			_ = ln.Close()
			return err
		}
	}
	return nil
}

// Addr はHTTPサーバーのリッスンアドレスを返す（Listen 前は nil）
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stats は現在の集計値を返す
func (s *Server) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

// Serve は接続を受け付け、接続毎にゴルーチンを起動する
// Shutdown によりリスナーが閉じられると nil を返す
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("サーバーがリッスンしていません")
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosing() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.WithError(err).Error("接続の受け付けに失敗しました")
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		go s.handleConn(conn)
	}
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// track は接続を登録する。シャットダウン中なら false を返す
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

// handleConn は1つの接続で1つのリクエストを処理して閉じる
func (s *Server) handleConn(conn net.Conn) {
	defer s.untrack(conn)

	s.stats.connOpened()
	defer s.stats.connClosed()

	log := s.logger.WithFields(logrus.Fields{
		"conn_id": uuid.NewString(),
		"remote":  conn.RemoteAddr().String(),
	})
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.WithError(err).Debug("接続のクローズに失敗しました")
		}
	}()

	if err := s.serveConn(conn, log); err != nil {
		s.logConnError(log, err)
	}
}

func (s *Server) serveConn(conn net.Conn, log logrus.FieldLogger) error {
	now := time.Now()
	if d := s.config.Server.ReadTimeout.Std(); d > 0 {
		if err := conn.SetReadDeadline(now.Add(d)); err != nil {
			return fmt.Errorf("読み込み期限の設定に失敗: %w", err)
		}
	}
	if d := s.config.Server.WriteTimeout.Std(); d > 0 {
		if err := conn.SetWriteDeadline(now.Add(d)); err != nil {
			return fmt.Errorf("書き込み期限の設定に失敗: %w", err)
		}
	}

	req, err := request.NewReader(conn, s.config.Server.MaxBodyBytes).ReadRequest()
	if err != nil {
		return err
	}
	s.stats.requests.Add(1)

	log = log.WithFields(logrus.Fields{
		"method": req.Method,
		"target": req.Target,
	})
	log.Debug("リクエストを受信しました")

	res, err := s.router.Dispatch(req)
	if err != nil {
		return &HandlerIOError{Err: err}
	}
	defer func() {
		if err := res.Close(); err != nil {
			log.WithError(err).Debug("レスポンスボディのクローズに失敗しました")
		}
	}()

	if err := response.Write(conn, res); err != nil {
		return err
	}
	s.stats.responded(res.StatusCode)

	log.WithFields(logrus.Fields{
		"status": int(res.StatusCode),
		"bytes":  res.BodyLen(),
	}).Info("レスポンスを送信しました")
	return nil
}

// logConnError はエラーの種類に応じて集計とログ出力を行う
func (s *Server) logConnError(log logrus.FieldLogger, err error) {
	var readErr *request.ReadError
	var ioErr *HandlerIOError

	switch {
	case errors.As(err, &readErr):
		s.stats.readErrors.Add(1)
		if readErr.Stage == request.StageRequestLine && errors.Is(err, io.EOF) {
			log.Debug("リクエストを送らずに切断されました")
			return
		}
		log.WithError(err).Warn("リクエストを読み取れないため接続を終了します")
	case errors.Is(err, request.ErrMalformedRequestLine):
		s.stats.malformed.Add(1)
		log.WithError(err).Warn("リクエスト行が不正なため接続を終了します")
	case errors.As(err, &ioErr):
		s.stats.handlerErrors.Add(1)
		log.WithError(err).Error("ハンドラの処理に失敗したため接続を終了します")
	default:
		log.WithError(err).Warn("接続の処理に失敗しました")
	}
}

// Start はサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	// シャットダウン用のチャンネル
	serveCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		s.logger.WithFields(logrus.Fields{
			"addr":        s.Addr().String(),
			"serve_root":  s.config.Files.Root,
			"instance_id": s.instanceID,
		}).Info("HTTPサーバーを起動しています")
		serveCh <- s.Serve()
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.logger.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.Infof("シグナルを受信しました: %v", sig)
	case err := <-serveCh:
		if err != nil {
			return fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// 5秒以内に終わらない接続は強制的に閉じる
func (s *Server) Shutdown() error {
	s.logger.Info("サーバーをシャットダウンしています...")

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	var closeErr error
	if s.listener != nil {
		closeErr = s.listener.Close()
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		errs = append(errs, fmt.Errorf("リスナーのクローズに失敗: %w", closeErr))
	}
	if err := s.shutdownStatus(ctx); err != nil {
		errs = append(errs, err)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.mu.Lock()
		n := len(s.conns)
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.mu.Unlock()
		<-done
		s.logger.Warnf("%d 件の接続を強制的に閉じました", n)
	}

	if len(errs) > 0 {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", errors.Join(errs...))
	}

	s.logger.Info("サーバーが正常にシャットダウンされました")
	return nil
}
