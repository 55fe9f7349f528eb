package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"hikyaku/internal/files"
	"hikyaku/internal/request"
	"hikyaku/internal/response"
	"hikyaku/internal/router"
)

// Handlers はパス毎のハンドラを実装する
type Handlers struct {
	root   *files.Root
	logger logrus.FieldLogger
}

// NewHandlers は新しいHandlersを作成する
func NewHandlers(root *files.Root, logger logrus.FieldLogger) *Handlers {
	return &Handlers{root: root, logger: logger}
}

// Routes はハンドラを登録したRouterを返す
func (h *Handlers) Routes() *router.Router {
	r := router.New()
	r.Handle(request.MethodGet, "", h.Root)
	r.Handle(request.MethodGet, "echo", h.Echo)
	r.Handle(request.MethodGet, "user-agent", h.UserAgent)
	r.Handle(request.MethodGet, "files", h.ReadFile)
	r.Handle(request.MethodPost, "files", h.CreateFile)
	return r
}

// Root は "/" に空ボディの 200 を返す
func (h *Handlers) Root(*request.Request, []string) (*response.Response, error) {
	return response.New(response.StatusOK), nil
}

// Echo は "echo" 以降のパスをそのまま返す（デコードはしない）
func (h *Handlers) Echo(_ *request.Request, rest []string) (*response.Response, error) {
	return response.Text(response.StatusOK, strings.Join(rest, "/")), nil
}

// UserAgent は User-Agent ヘッダーの値を返す
// ヘッダーがない場合は空ボディの 200
func (h *Handlers) UserAgent(req *request.Request, _ []string) (*response.Response, error) {
	return response.Text(response.StatusOK, req.UserAgent()), nil
}

// ReadFile は配信ルート直下のファイルを application/octet-stream で返す
// ルートが使えない、ファイルが開けない場合は 404
func (h *Handlers) ReadFile(_ *request.Request, rest []string) (*response.Response, error) {
	name := firstSegment(rest)

	rc, size, err := h.root.Open(name)
	if err != nil {
		h.logger.WithError(err).WithField("file", name).Debug("ファイルを返せないため404を返します")
		return response.NotFound(), nil
	}

	res := response.New(response.StatusOK)
	res.SetStream(rc, size, response.ContentTypeBinary)
	return res, nil
}

// CreateFile はリクエストボディを配信ルート直下のファイルに書き込む
// ルートが使えない、ファイル名が不正な場合は 404
// それ以外の書き込み失敗はエラーとして返し、接続を終了させる
func (h *Handlers) CreateFile(req *request.Request, rest []string) (*response.Response, error) {
	name := firstSegment(rest)

	if err := h.root.Write(name, req.Body); err != nil {
		if errors.Is(err, files.ErrRootUnavailable) || errors.Is(err, files.ErrInvalidName) {
			h.logger.WithError(err).WithField("file", name).Debug("ファイルを作成できないため404を返します")
			return response.NotFound(), nil
		}
		return nil, fmt.Errorf("ファイル %s の作成に失敗: %w", name, err)
	}

	return response.New(response.StatusCreated), nil
}

// firstSegment はファイル名として使う次のセグメントを返す
// "/files/a/b" の "b" は使わない
func firstSegment(rest []string) string {
	if len(rest) == 0 {
		return ""
	}
	return rest[0]
}
