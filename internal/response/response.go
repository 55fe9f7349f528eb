// Package response はHTTPレスポンスの組み立てと書き出しを担う
package response

import (
	"io"
	"strconv"

	"hikyaku/internal/headers"
)

// StatusCode はレスポンスのステータスコード
type StatusCode int

// 送出するステータスコード
const (
	StatusOK       StatusCode = 200
	StatusCreated  StatusCode = 201
	StatusNotFound StatusCode = 404
)

// Content-Type の固定値
const (
	ContentTypeText   = "text/plain"
	ContentTypeBinary = "application/octet-stream"
)

// Version はステータス行に書くHTTPバージョン
const Version = "HTTP/1.1"

var reasonPhrases = map[StatusCode]string{
	StatusOK:       "OK",
	StatusCreated:  "Created",
	StatusNotFound: "Not Found",
}

// Reason はステータスコードに対応する理由句を返す
func (s StatusCode) Reason() string {
	if r, ok := reasonPhrases[s]; ok {
		return r
	}
	return "Unknown"
}

// Response は1つのHTTPレスポンス
type Response struct {
	StatusCode StatusCode
	Headers    *headers.Headers
	Body       []byte

	// stream が設定されている場合、Body の代わりにこちらを書き出す
	stream     io.Reader
	streamSize int64
}

// New は空ボディのレスポンスを作成する
func New(code StatusCode) *Response {
	return &Response{StatusCode: code, Headers: headers.New()}
}

// NotFound は空ボディの 404 を返す
func NotFound() *Response {
	return New(StatusNotFound)
}

// Text は text/plain のボディを持つレスポンスを作成する
func Text(code StatusCode, body string) *Response {
	res := New(code)
	res.SetBody([]byte(body), ContentTypeText)
	return res
}

// SetBody はボディと Content-Type / Content-Length を設定する
func (r *Response) SetBody(body []byte, contentType string) {
	r.stream = nil
	r.streamSize = 0
	r.Body = body
	r.Headers.Set("Content-Type", contentType)
	r.Headers.Set("Content-Length", strconv.Itoa(len(body)))
}

// SetStream は size バイトを src から流し込むボディを設定する
// src が io.Closer の場合、Close で閉じられる
func (r *Response) SetStream(src io.Reader, size int64, contentType string) {
	r.Body = nil
	r.stream = src
	r.streamSize = size
	r.Headers.Set("Content-Type", contentType)
	r.Headers.Set("Content-Length", strconv.FormatInt(size, 10))
}

// BodyLen はボディのバイト長を返す
func (r *Response) BodyLen() int64 {
	if r.stream != nil {
		return r.streamSize
	}
	return int64(len(r.Body))
}

// Close はストリームボディが io.Closer であれば閉じる
func (r *Response) Close() error {
	if c, ok := r.stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
