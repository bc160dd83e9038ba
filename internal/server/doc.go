// Package server は、カメラ画面をHTTPで提供します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - カメラ操作（開始、再試行、切り替え、撮影）のAPI
//   - ギャラリーの開閉と写真データの配信
//   - 表示状態のSSE配信とライブプレビューのMJPEG配信
//   - 画面（HTML/CSS/JS）の配信
//
// 仕様:
//   - ルーティングはgin、アクセスログはzerolog
//   - カメラの開始系の操作は非同期で、結果は表示状態として配信する
//   - 起動時に最初のカメラ取得を開始する
//   - グレースフルシャットダウン時にカメラセッションを解放する
package server
