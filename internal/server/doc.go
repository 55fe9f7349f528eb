// Package server は、TCP上でHTTP/1.1リクエストを受け付けて応答します。
//
// このパッケージは、接続の受け付け、パス毎のハンドラ、
// 状態確認用サーバーの起動を担当します。
//
// 責務:
//   - 接続の受け付けと接続毎のゴルーチン起動
//   - リクエストの読み取り→ルーティング→ハンドラ→レスポンス書き出し
//   - echo / user-agent / ファイル読み込み / ファイル作成 のハンドラ
//   - 接続とレスポンスの集計、状態確認API（gin）の提供
//
// 仕様:
//   - 1接続につき1リクエスト・1レスポンスを処理して切断する
//   - 送出するステータスは 200 / 201 / 404 のみ
//   - 読み取りエラーや不正なリクエスト行はレスポンスを送らずに切断する
//   - 接続間で共有する可変状態は集計値のみ
//   - グレースフルシャットダウンに対応
package server
