package response

import (
	"bufio"
	"fmt"
	"io"
)

// Write はステータス行・ヘッダー・空行・ボディの順にレスポンスを書き出す
// 途中で失敗した場合は再試行しない
func Write(w io.Writer, res *Response) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "%s %d %s\r\n", Version, int(res.StatusCode), res.StatusCode.Reason()); err != nil {
		return fmt.Errorf("ステータス行の書き込みに失敗: %w", err)
	}
	for _, f := range res.Headers.Fields() {
		if _, err := fmt.Fprintf(bw, "%s: %s\r\n", f.Name, f.Value); err != nil {
			return fmt.Errorf("ヘッダーの書き込みに失敗: %w", err)
		}
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return fmt.Errorf("ヘッダー終端の書き込みに失敗: %w", err)
	}

	if res.stream != nil {
		n, err := io.CopyN(bw, res.stream, res.streamSize)
		if err != nil {
			return fmt.Errorf("ボディの書き込みに失敗 (%d/%d bytes): %w", n, res.streamSize, err)
		}
	} else if len(res.Body) > 0 {
		if _, err := bw.Write(res.Body); err != nil {
			return fmt.Errorf("ボディの書き込みに失敗: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("レスポンスの送信に失敗: %w", err)
	}
	return nil
}
