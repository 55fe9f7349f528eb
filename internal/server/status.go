package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ServerInfo はHTTPサーバーのリッスン情報
type ServerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StatusResponse はシステム状態のレスポンス
type StatusResponse struct {
	Status        string        `json:"status"`
	InstanceID    string        `json:"instance_id"`
	Server        ServerInfo    `json:"server"`
	ServeRoot     string        `json:"serve_root"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	Connections   StatsSnapshot `json:"connections"`
	Timestamp     time.Time     `json:"timestamp"`
}

// StatusHandler は状態確認用エンドポイントを実装する
type StatusHandler struct {
	server *Server
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *StatusHandler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *StatusHandler) GetStatus(c *gin.Context) {
	s := h.server
	info := ServerInfo{Host: s.config.Server.Host, Port: s.config.Server.Port}
	// ポート 0 で起動した場合は実際のポートを返す
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		info.Port = addr.Port
	}

	response := StatusResponse{
		Status:        "running",
		InstanceID:    s.instanceID,
		Server:        info,
		ServeRoot:     s.config.Files.Root,
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Connections:   s.stats.Snapshot(),
		Timestamp:     time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// StatusEngine は状態確認用のginエンジンを返す
func (s *Server) StatusEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	h := &StatusHandler{server: s}
	engine.GET("/health", h.HealthCheck)
	engine.GET("/api/status", h.GetStatus)

	return engine
}

// listenStatus は状態確認サーバーを別ゴルーチンで起動する
func (s *Server) listenStatus() error {
	ln, err := net.Listen("tcp", s.config.StatusAddress())
	if err != nil {
		return fmt.Errorf("状態確認サーバーのリッスンに失敗 (%s): %w", s.config.StatusAddress(), err)
	}

	srv := &http.Server{
		Handler:           s.StatusEngine(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.statusListener = ln
	s.statusServer = srv
	s.mu.Unlock()

	go func() {
		s.logger.WithField("addr", ln.Addr().String()).Info("状態確認サーバーを起動しています")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("状態確認サーバーが停止しました")
		}
	}()
	return nil
}

// StatusAddr は状態確認サーバーのリッスンアドレスを返す（無効なら nil）
func (s *Server) StatusAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusListener == nil {
		return nil
	}
	return s.statusListener.Addr()
}

func (s *Server) shutdownStatus(ctx context.Context) error {
	s.mu.Lock()
	srv := s.statusServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("状態確認サーバーのシャットダウンに失敗: %w", err)
	}
	return nil
}
