package server

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hikyaku/internal/files"
	"hikyaku/internal/headers"
	"hikyaku/internal/logging"
	"hikyaku/internal/request"
	"hikyaku/internal/response"
)

// dispatch はハンドラを通したレスポンスを文字列で返す
func dispatch(t *testing.T, root string, req *request.Request) (string, error) {
	t.Helper()
	if req.Headers == nil {
		req.Headers = headers.New()
	}

	r := NewHandlers(files.NewRoot(root), logging.Discard()).Routes()
	res, err := r.Dispatch(req)
	if err != nil {
		return "", err
	}
	defer res.Close()

	buf := new(bytes.Buffer)
	if err := response.Write(buf, res); err != nil {
		t.Fatalf("レスポンスの書き込みに失敗: %v", err)
	}
	return buf.String(), nil
}

func TestHandlers(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "exists.bin"), []byte{0x00, 0x01, 0x02}, 0o644); err != nil {
		t.Fatal(err)
	}

	withUA := headers.New()
	withUA.Add("Host", "localhost")
	withUA.Add("User-Agent", "test-client/1.0")

	lowerUA := headers.New()
	lowerUA.Add("user-agent", "lower/2.0")

	testCases := []struct {
		name   string
		req    *request.Request
		expect string
	}{
		{
			name:   "ルート",
			req:    &request.Request{Method: request.MethodGet, Target: "/", Headers: withUA},
			expect: "HTTP/1.1 200 OK\r\n\r\n",
		},
		{
			name:   "echo",
			req:    &request.Request{Method: request.MethodGet, Target: "/echo/abc"},
			expect: "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 3\r\n\r\nabc",
		},
		{
			name:   "echo 複数セグメント",
			req:    &request.Request{Method: request.MethodGet, Target: "/echo/a/b/c"},
			expect: "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\na/b/c",
		},
		{
			name:   "echo パーセントエンコードはそのまま",
			req:    &request.Request{Method: request.MethodGet, Target: "/echo/a%20b"},
			expect: "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\na%20b",
		},
		{
			name:   "user-agent",
			req:    &request.Request{Method: request.MethodGet, Target: "/user-agent", Headers: withUA},
			expect: "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 15\r\n\r\ntest-client/1.0",
		},
		{
			name:   "user-agent 小文字のヘッダー名",
			req:    &request.Request{Method: request.MethodGet, Target: "/user-agent", Headers: lowerUA},
			expect: "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 9\r\n\r\nlower/2.0",
		},
		{
			name:   "user-agent ヘッダーなし",
			req:    &request.Request{Method: request.MethodGet, Target: "/user-agent"},
			expect: "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 0\r\n\r\n",
		},
		{
			name:   "ファイル読み込み",
			req:    &request.Request{Method: request.MethodGet, Target: "/files/exists.bin"},
			expect: "HTTP/1.1 200 OK\r\nContent-Type: application/octet-stream\r\nContent-Length: 3\r\n\r\n\x00\x01\x02",
		},
		{
			name:   "存在しないファイル",
			req:    &request.Request{Method: request.MethodGet, Target: "/files/doesnotexist"},
			expect: "HTTP/1.1 404 Not Found\r\n\r\n",
		},
		{
			name:   "ファイル名なし",
			req:    &request.Request{Method: request.MethodGet, Target: "/files/"},
			expect: "HTTP/1.1 404 Not Found\r\n\r\n",
		},
		{
			name:   "ルート外へのパス",
			req:    &request.Request{Method: request.MethodGet, Target: "/files/.."},
			expect: "HTTP/1.1 404 Not Found\r\n\r\n",
		},
		{
			name:   "未知のパス",
			req:    &request.Request{Method: request.MethodGet, Target: "/unknown/path"},
			expect: "HTTP/1.1 404 Not Found\r\n\r\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := dispatch(t, root, tc.req)
			if err != nil {
				t.Fatalf("予期しないエラー: %v", err)
			}
			if got != tc.expect {
				t.Errorf("got %q, want %q", got, tc.expect)
			}
		})
	}
}

func TestHandlers_CreateThenRead(t *testing.T) {
	root := t.TempDir()

	post := func(body string) string {
		got, err := dispatch(t, root, &request.Request{
			Method: request.MethodPost,
			Target: "/files/foo.txt",
			Body:   []byte(body),
		})
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		return got
	}

	if got := post("hello world"); got != "HTTP/1.1 201 Created\r\n\r\n" {
		t.Fatalf("got %q", got)
	}
	// 2回目の POST は上書き
	if got := post("hello"); got != "HTTP/1.1 201 Created\r\n\r\n" {
		t.Fatalf("got %q", got)
	}

	got, err := dispatch(t, root, &request.Request{Method: request.MethodGet, Target: "/files/foo.txt"})
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	expect := "HTTP/1.1 200 OK\r\nContent-Type: application/octet-stream\r\nContent-Length: 5\r\n\r\nhello"
	if got != expect {
		t.Errorf("got %q, want %q", got, expect)
	}
}

func TestHandlers_MissingRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	for _, method := range []request.Method{request.MethodGet, request.MethodPost} {
		t.Run(string(method), func(t *testing.T) {
			got, err := dispatch(t, missing, &request.Request{Method: method, Target: "/files/a.txt", Body: []byte("x")})
			if err != nil {
				t.Fatalf("予期しないエラー: %v", err)
			}
			if got != "HTTP/1.1 404 Not Found\r\n\r\n" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestHandlers_CreateFailureIsError(t *testing.T) {
	root := t.TempDir()
	// 同名のディレクトリがあるとファイルとして開けない
	if err := os.Mkdir(filepath.Join(root, "taken"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := dispatch(t, root, &request.Request{Method: request.MethodPost, Target: "/files/taken", Body: []byte("x")})
	if err == nil {
		t.Fatal("エラーが期待されましたが、エラーが発生しませんでした")
	}
	if !strings.Contains(err.Error(), "taken") {
		t.Errorf("エラーにファイル名が含まれていません: %v", err)
	}
}
