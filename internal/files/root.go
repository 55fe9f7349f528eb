// Package files はファイル読み書きハンドラが使う配信ルートディレクトリを扱う
//
// 仕様:
//   - ルートの存在とディレクトリであることはリクエスト毎に確認する
//   - ファイル名は単一のパス要素のみ受け付ける
//   - os.Root 経由で開くため、ルートの外には出られない
package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrRootUnavailable はルートが存在しない、またはディレクトリではないことを表す
	ErrRootUnavailable = errors.New("配信ルートが利用できません")

	// ErrInvalidName はファイル名がルート直下の単一要素として不正であることを表す
	ErrInvalidName = errors.New("不正なファイル名")

	// ErrNotRegular はファイルが通常ファイルではないことを表す
	ErrNotRegular = errors.New("通常ファイルではありません")
)

// Root は配信ルートディレクトリ
type Root struct {
	dir string
}

// NewRoot は新しいRootを作成する。存在確認はここでは行わない
func NewRoot(dir string) *Root {
	return &Root{dir: dir}
}

// Dir はルートディレクトリのパスを返す
func (r *Root) Dir() string {
	return r.dir
}

// Available はルートが存在してディレクトリであるかを確認する
func (r *Root) Available() error {
	if r.dir == "" {
		return fmt.Errorf("%w: 未設定", ErrRootUnavailable)
	}
	info, err := os.Stat(r.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRootUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s はディレクトリではありません", ErrRootUnavailable, r.dir)
	}
	return nil
}

// ValidateName はファイル名がルート直下の単一要素であることを確認する
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (r *Root) open() (*os.Root, error) {
	if err := r.Available(); err != nil {
		return nil, err
	}
	root, err := os.OpenRoot(r.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRootUnavailable, err)
	}
	return root, nil
}

// Open はファイルを読み込み用に開き、サイズと共に返す
// 呼び出し側が Close する
func (r *Root) Open(name string) (io.ReadCloser, int64, error) {
	if err := ValidateName(name); err != nil {
		return nil, 0, err
	}
	root, err := r.open()
	if err != nil {
		return nil, 0, err
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		return nil, 0, fmt.Errorf("ファイルのオープンに失敗: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("ファイル情報の取得に失敗: %w", err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, fmt.Errorf("%w: %s", ErrNotRegular, name)
	}
	return f, info.Size(), nil
}

// Write はファイルを作成または切り詰めて data をそのまま書き込む
func (r *Root) Write(name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	root, err := r.open()
	if err != nil {
		return err
	}
	defer root.Close()

	f, err := root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("ファイルの作成に失敗: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("ファイルの書き込みに失敗: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("ファイルのクローズに失敗: %w", err)
	}
	return nil
}
