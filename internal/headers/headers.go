// Package headers はリクエストとレスポンスで共有するHTTPヘッダーの集合を提供する
package headers

import (
	"fmt"
	"strings"
)

// Field は1行分のヘッダー（名前と値）
type Field struct {
	Name  string
	Value string
}

// Headers は受信・設定順を保持するヘッダーの集合
// 名前の照合は大文字小文字を区別しない完全一致で行う
type Headers struct {
	fields []Field
}

// New は空のHeadersを作成する
func New() *Headers {
	return &Headers{}
}

// ParseLine は "Name: value" 形式のヘッダー行を分解する
func ParseLine(line string) (Field, error) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return Field{}, fmt.Errorf("ヘッダー行に ':' がありません: %q", line)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Field{}, fmt.Errorf("ヘッダー名が空です: %q", line)
	}
	return Field{Name: name, Value: strings.TrimSpace(value)}, nil
}

// Add はヘッダーを末尾に追加する（同名ヘッダーがあっても置き換えない）
func (h *Headers) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Set は同名の最初のヘッダーを置き換える。存在しなければ末尾に追加する
func (h *Headers) Set(name, value string) {
	for i := range h.fields {
		if strings.EqualFold(h.fields[i].Name, name) {
			h.fields[i].Value = value
			return
		}
	}
	h.Add(name, value)
}

// Get は最初に一致したヘッダーの値をトリムして返す
func (h *Headers) Get(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return strings.TrimSpace(f.Value), true
		}
	}
	return "", false
}

// Len はヘッダーの件数を返す
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.fields)
}

// Fields は順序を保ったヘッダーのコピーを返す
func (h *Headers) Fields() []Field {
	if h == nil {
		return nil
	}
	out := make([]Field, len(h.fields))
	copy(out, h.fields)
	return out
}
