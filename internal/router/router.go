// Package router は (メソッド, パス先頭セグメント) の組でハンドラを選択する
package router

import (
	"hikyaku/internal/request"
	"hikyaku/internal/response"
)

// HandlerFunc はリクエストに対するレスポンスを生成する
// rest は先頭セグメントより後ろのパスセグメント
// エラーを返した場合、その接続はレスポンスを送らずに終了する
type HandlerFunc func(req *request.Request, rest []string) (*response.Response, error)

type routeKey struct {
	method  request.Method
	segment string
}

// Router はメソッドと先頭セグメントの完全一致でハンドラを選ぶ
type Router struct {
	routes   map[routeKey]HandlerFunc
	notFound HandlerFunc
}

// New は新しいRouterを作成する
func New() *Router {
	return &Router{
		routes:   make(map[routeKey]HandlerFunc),
		notFound: notFound,
	}
}

func notFound(*request.Request, []string) (*response.Response, error) {
	return response.NotFound(), nil
}

// Handle はルートを登録する。segment が "" の場合は "/" に一致する
func (r *Router) Handle(method request.Method, segment string, h HandlerFunc) {
	r.routes[routeKey{method, segment}] = h
}

// NotFound は一致しなかった場合のハンドラを差し替える
func (r *Router) NotFound(h HandlerFunc) {
	r.notFound = h
}

// Match はリクエストに一致するハンドラと残りのセグメントを返す
func (r *Router) Match(req *request.Request) (HandlerFunc, []string) {
	first, rest := split(req.Segments())

	// "/" は先頭セグメントが空で、かつ後続がない場合のみ
	if first == "" && len(rest) > 0 {
		return r.notFound, nil
	}

	h, ok := r.routes[routeKey{req.Method, first}]
	if !ok {
		return r.notFound, nil
	}
	return h, rest
}

// Dispatch はリクエストを一致したハンドラに渡す
// 一致しない組み合わせは 404 レスポンスであり、エラーではない
func (r *Router) Dispatch(req *request.Request) (*response.Response, error) {
	h, rest := r.Match(req)
	return h(req, rest)
}

// split は ["", "echo", "a", "b"] を ("echo", ["a", "b"]) に分ける
// "/" の場合 ["", ""] なので ("", []) となる
func split(segments []string) (string, []string) {
	if len(segments) < 2 {
		return "", nil
	}
	return segments[1], segments[2:]
}
