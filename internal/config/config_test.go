package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"snapcam/internal/camera"
)

// TestConfigLoad は設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	t.Setenv("SERVER_HOST", "")
	t.Setenv("PORT", "")
	t.Setenv("SNAPCAM_LOG_LEVEL", "")

	// 設定を読み込む
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// サーバー設定の検証
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("サーバーホストのデフォルト値が不正です: %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("ポートのデフォルト値が不正です: %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		t.Error("読み込みタイムアウトが設定されていません")
	}
	// WriteTimeout は 0（無効）でも正常
	if cfg.Server.WriteTimeout < 0 {
		t.Error("書き込みタイムアウトが負の値です")
	}

	// カメラ設定の検証
	if cfg.InitialFacing() != camera.FacingBack {
		t.Errorf("初期の向きは背面であるべきです: %s", cfg.InitialFacing())
	}
	if cfg.Camera.IdealWidth != 1920 || cfg.Camera.IdealHeight != 1080 {
		t.Errorf("解像度のデフォルト値が不正です: %dx%d", cfg.Camera.IdealWidth, cfg.Camera.IdealHeight)
	}

	// 撮影設定の検証
	if cfg.Capture.Format != "webp" {
		t.Errorf("画像形式のデフォルト値が不正です: %s", cfg.Capture.Format)
	}
	if cfg.Capture.FlashDuration != 200*time.Millisecond {
		t.Errorf("フラッシュ時間のデフォルト値が不正です: %v", cfg.Capture.FlashDuration)
	}
}

// TestConfigLoadFile はYAMLファイルからの読み込みをテストする
func TestConfigLoadFile(t *testing.T) {
	t.Setenv("SERVER_HOST", "")
	t.Setenv("PORT", "")
	t.Setenv("SNAPCAM_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "snapcam.yaml")
	content := `
server:
  port: 9000
camera:
  mock: true
  front_device: /dev/video2
  initial_facing: front
capture:
  format: jpeg
  quality: 80
  flash_duration: 50ms
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("設定ファイルの作成に失敗しました: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("ポートが反映されていません: %d", cfg.Server.Port)
	}
	// ファイルで指定していない値はデフォルトのまま
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("ホストのデフォルト値が失われました: %s", cfg.Server.Host)
	}
	if !cfg.Camera.Mock || cfg.Camera.FrontDevice != "/dev/video2" || cfg.Camera.BackDevice != "" {
		t.Errorf("カメラ設定が反映されていません: %+v", cfg.Camera)
	}
	if cfg.InitialFacing() != camera.FacingFront {
		t.Errorf("初期の向きが反映されていません: %s", cfg.InitialFacing())
	}
	if cfg.Capture.Format != "jpeg" || cfg.Capture.Quality != 80 || cfg.Capture.FlashDuration != 50*time.Millisecond {
		t.Errorf("撮影設定が反映されていません: %+v", cfg.Capture)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("ログレベルが反映されていません: %s", cfg.Log.Level)
	}
}

// TestConfigLoadFileErrors は読み込み失敗をテストする
func TestConfigLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("server: [\n"), 0o644); err != nil {
		t.Fatalf("設定ファイルの作成に失敗しました: %v", err)
	}
	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("capture:\n  format: png\n"), 0o644); err != nil {
		t.Fatalf("設定ファイルの作成に失敗しました: %v", err)
	}

	testCases := []struct {
		name string
		path string
	}{
		{"存在しないファイル", filepath.Join(dir, "missing.yaml")},
		{"不正なYAML", broken},
		{"検証エラー", invalid},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(tc.path); err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
		})
	}
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name      string
		modify    func(c *Config)
		expectErr bool
	}{
		{"正常な設定", func(c *Config) {}, false},
		{"ランダムポート", func(c *Config) { c.Server.Port = 0 }, false},
		{"無効なポート番号", func(c *Config) { c.Server.Port = 99999 }, true},
		{"負のタイムアウト", func(c *Config) { c.Server.ReadTimeout = -time.Second }, true},
		{"無効な向き", func(c *Config) { c.Camera.InitialFacing = "side" }, true},
		{"向きの別名", func(c *Config) { c.Camera.InitialFacing = "user" }, false},
		{"解像度なし", func(c *Config) { c.Camera.IdealWidth = 0 }, true},
		{"FPSなし", func(c *Config) { c.Camera.FPS = 0 }, true},
		{"未対応の画像形式", func(c *Config) { c.Capture.Format = "png" }, true},
		{"画質が範囲外", func(c *Config) { c.Capture.Quality = 101 }, true},
		{"無効なログレベル", func(c *Config) { c.Log.Level = "trace" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)

			err := cfg.Validate()
			if tc.expectErr && err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("予期しないエラーが発生しました: %v", err)
			}
		})
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "192.168.1.100",
			Port: 9090,
		},
	}

	expected := "192.168.1.100:9090"
	actual := cfg.ServerAddress()

	if actual != expected {
		t.Errorf("サーバーアドレスが一致しません: got %s, want %s", actual, expected)
	}
}

// TestEnvironmentVariables は環境変数の処理をテストする
// 注意: このテストは環境変数を変更するため、parallelは使わない
func TestEnvironmentVariables(t *testing.T) {
	t.Setenv("SERVER_HOST", "test.example.com")
	t.Setenv("PORT", "9999")
	t.Setenv("SNAPCAM_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Host != "test.example.com" {
		t.Errorf("環境変数のホストが反映されていません: got %s, want test.example.com", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("環境変数のポートが反映されていません: got %d, want 9999", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("環境変数のログレベルが反映されていません: got %s, want warn", cfg.Log.Level)
	}

	// 数値でない値は無視される
	t.Setenv("PORT", "abc")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("不正なポートはデフォルト値になるべきです: got %d", cfg.Server.Port)
	}
}
