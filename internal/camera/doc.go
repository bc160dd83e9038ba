// Package camera カメラセッションの取得を担う
//
// # 責務
// - 向き（前面/背面）と解像度のヒントに従ったカメラセッションの取得
// - 取得失敗の分類（アクセス拒否、未検出、使用中、その他）とユーザー向けメッセージへの変換
// - セッションからの最新フレーム取得とプレビュー用ストリーミング
// - セッションの解放（全トラックの停止）
//
// # 仕様
// - V4L2Acquirer: V4L2デバイスからffmpeg経由でMJPEGをストリーミングする
// - PatternAcquirer: 実機なしで動作するテストパターンカメラ
// - Discovery: /dev/video* の検出と前面/背面への割り当て
// - 解像度はベストエフォートで、実際のサイズは届いたフレームから決まる
//
// # 前提要件
//   - ffmpeg: 画像キャプチャとストリーミングに使用
//     Ubuntu/Debian: sudo apt install ffmpeg
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
