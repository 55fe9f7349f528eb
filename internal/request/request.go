// Package request は生のバイトストリームからHTTP/1.1リクエストを読み取る
//
// 責務:
//   - リクエスト行・ヘッダー行・固定長ボディの読み取り
//   - リクエスト行の METHOD / PATH / VERSION への分解
//   - ヘッダーの検索（大文字小文字を区別しない完全一致）
//
// 仕様:
//   - ボディ長は Content-Length のみで決定する（chunked は非対応）
//   - ストリームのEOFからボディ長を推測しない
package request

import (
	"errors"
	"fmt"
	"strings"

	"hikyaku/internal/headers"
)

// Method はリクエストメソッド
type Method string

// Method の定数定義
const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodPatch   Method = "PATCH"
)

// DefaultVersion はリクエスト行にバージョンがない場合に使う値
const DefaultVersion = "HTTP/1.1"

// ErrMalformedRequestLine はリクエスト行からメソッドとパスを取り出せないことを表す
var ErrMalformedRequestLine = errors.New("不正なリクエスト行")

// Request は1接続で受け取る1つのリクエスト
type Request struct {
	Method  Method
	Target  string // "/" で始まるパス（パーセントデコードはしない）
	Version string
	Headers *headers.Headers
	Body    []byte
}

// ParseRequestLine は "METHOD PATH VERSION" を空白で分解する
// メソッドとパスは必須で、バージョンは省略時に DefaultVersion となる
func ParseRequestLine(line string) (Method, string, string, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", "", fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}
	target := fields[1]
	if !strings.HasPrefix(target, "/") {
		return "", "", "", fmt.Errorf("%w: パスが '/' で始まっていません: %q", ErrMalformedRequestLine, line)
	}
	version := DefaultVersion
	if len(fields) > 2 {
		version = fields[2]
	}
	return Method(fields[0]), target, version, nil
}

// Segments はパスを "/" で分割したセグメント列を返す
// 先頭の "/" による空セグメントも含む（"/echo/abc" -> ["", "echo", "abc"]）
func (r *Request) Segments() []string {
	return strings.Split(r.Target, "/")
}

// Header は指定した名前のヘッダー値を返す
func (r *Request) Header(name string) (string, bool) {
	return r.Headers.Get(name)
}

// UserAgent は User-Agent ヘッダーの値を返す（存在しなければ空文字列）
func (r *Request) UserAgent() string {
	v, _ := r.Header("User-Agent")
	return v
}
