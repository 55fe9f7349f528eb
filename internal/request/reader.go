package request

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"hikyaku/internal/headers"
)

// Stage は読み取りに失敗した段階
type Stage string

const (
	StageRequestLine Stage = "request line"
	StageHeaders     Stage = "headers"
	StageBody        Stage = "body"
)

// ReadError はリクエストを最後まで読み取れなかったことを表す
// 接続にとって致命的で、レスポンスは送らない
type ReadError struct {
	Stage Stage
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("リクエストの読み取りに失敗 (%s): %v", e.Stage, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ErrBodyTooLarge は宣言された Content-Length が上限を超えていることを表す
var ErrBodyTooLarge = errors.New("Content-Length が上限を超えています")

// Reader はストリームから1つのリクエストを読み取る
type Reader struct {
	r            *bufio.Reader
	maxBodyBytes int64
}

// NewReader は新しいReaderを作成する
// maxBodyBytes が 0 以下の場合、ボディ長の上限は設けない
func NewReader(r io.Reader, maxBodyBytes int64) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br, maxBodyBytes: maxBodyBytes}
}

// readLine は1行を読み取る。バッファに収まらない長い行は連結する（net/textproto の readLineSlice と同様）
func (r *Reader) readLine() (string, error) {
	var line []byte
	for {
		l, more, err := r.r.ReadLine()
		if err != nil {
			return "", err
		}
		if line == nil && !more {
			return string(l), nil
		}
		line = append(line, l...)
		if !more {
			break
		}
	}
	return string(line), nil
}

// ReadRaw はリクエスト行と、空行までの生のヘッダー行を読み取る
func (r *Reader) ReadRaw() (string, []string, error) {
	requestLine, err := r.readLine()
	if err != nil {
		return "", nil, &ReadError{Stage: StageRequestLine, Err: err}
	}

	var lines []string
	for {
		line, err := r.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return "", nil, &ReadError{Stage: StageHeaders, Err: err}
		}
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	return requestLine, lines, nil
}

// ReadRequest はリクエスト全体（リクエスト行・ヘッダー・ボディ）を読み取る
func (r *Reader) ReadRequest() (*Request, error) {
	requestLine, lines, err := r.ReadRaw()
	if err != nil {
		return nil, err
	}

	method, target, version, err := ParseRequestLine(requestLine)
	if err != nil {
		return nil, err
	}

	hdrs := headers.New()
	for _, line := range lines {
		f, err := headers.ParseLine(line)
		if err != nil {
			// 解釈できない行は無視する
			continue
		}
		hdrs.Add(f.Name, f.Value)
	}

	req := &Request{
		Method:  method,
		Target:  target,
		Version: version,
		Headers: hdrs,
	}

	body, err := r.readBody(hdrs)
	if err != nil {
		return nil, err
	}
	req.Body = body
	return req, nil
}

// ContentLength は Content-Length ヘッダーを非負整数として解釈する
// 複数ある場合は最初に解釈できたものを使う
// 解釈できるものがない場合は ok=false を返す
func ContentLength(h *headers.Headers) (int64, bool) {
	if h == nil {
		return 0, false
	}
	for _, f := range h.Fields() {
		if !strings.EqualFold(f.Name, "Content-Length") {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(f.Value), 10, 64)
		if err != nil || n < 0 {
			continue
		}
		return n, true
	}
	return 0, false
}

// readBody は宣言された長さだけボディを読み取る
// 確保するメモリは実際に受信したバイト数に比例する
func (r *Reader) readBody(h *headers.Headers) ([]byte, error) {
	n, ok := ContentLength(h)
	if !ok || n == 0 {
		return []byte{}, nil
	}
	if r.maxBodyBytes > 0 && n > r.maxBodyBytes {
		return nil, &ReadError{Stage: StageBody, Err: fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, n, r.maxBodyBytes)}
	}

	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, r.r, n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &ReadError{Stage: StageBody, Err: err}
	}
	if copied < n {
		return nil, &ReadError{Stage: StageBody, Err: io.ErrUnexpectedEOF}
	}
	return buf.Bytes(), nil
}
