package router

import (
	"strings"
	"testing"

	"hikyaku/internal/request"
	"hikyaku/internal/response"
)

func newTestRouter(calls *[]string) *Router {
	record := func(name string) HandlerFunc {
		return func(req *request.Request, rest []string) (*response.Response, error) {
			*calls = append(*calls, name+":"+strings.Join(rest, ","))
			return response.New(response.StatusOK), nil
		}
	}

	r := New()
	r.Handle(request.MethodGet, "", record("root"))
	r.Handle(request.MethodGet, "echo", record("echo"))
	r.Handle(request.MethodGet, "files", record("file-read"))
	r.Handle(request.MethodPost, "files", record("file-create"))
	return r
}

func TestRouter_Dispatch(t *testing.T) {
	testCases := []struct {
		name       string
		method     request.Method
		target     string
		expectCall string
		expectCode response.StatusCode
	}{
		{"ルート", request.MethodGet, "/", "root:", response.StatusOK},
		{"echo", request.MethodGet, "/echo/abc", "echo:abc", response.StatusOK},
		{"echo 複数セグメント", request.MethodGet, "/echo/a/b/c", "echo:a,b,c", response.StatusOK},
		{"echo 残りなし", request.MethodGet, "/echo", "echo:", response.StatusOK},
		{"ファイル読み込み", request.MethodGet, "/files/foo.txt", "file-read:foo.txt", response.StatusOK},
		{"ファイル作成", request.MethodPost, "/files/foo.txt", "file-create:foo.txt", response.StatusOK},
		{"メソッド不一致", request.MethodPost, "/echo/abc", "", response.StatusNotFound},
		{"POST ルート", request.MethodPost, "/", "", response.StatusNotFound},
		{"未知のパス", request.MethodGet, "/unknown/path", "", response.StatusNotFound},
		{"空の先頭セグメントに続きがある", request.MethodGet, "//echo", "", response.StatusNotFound},
		{"大文字小文字は区別する", request.MethodGet, "/ECHO/abc", "", response.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var calls []string
			r := newTestRouter(&calls)

			res, err := r.Dispatch(&request.Request{Method: tc.method, Target: tc.target})
			if err != nil {
				t.Fatalf("404 はエラーではありません: %v", err)
			}
			if res.StatusCode != tc.expectCode {
				t.Errorf("status: got %d, want %d", res.StatusCode, tc.expectCode)
			}

			if tc.expectCall == "" {
				if len(calls) != 0 {
					t.Errorf("ハンドラが呼ばれるべきではありません: %v", calls)
				}
				return
			}
			if len(calls) != 1 || calls[0] != tc.expectCall {
				t.Errorf("calls: got %v, want [%s]", calls, tc.expectCall)
			}
		})
	}
}

func TestRouter_CustomNotFound(t *testing.T) {
	r := New()
	called := false
	r.NotFound(func(*request.Request, []string) (*response.Response, error) {
		called = true
		return response.NotFound(), nil
	})

	if _, err := r.Dispatch(&request.Request{Method: request.MethodGet, Target: "/nothing"}); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if !called {
		t.Error("差し替えた NotFound ハンドラが呼ばれていません")
	}
}
