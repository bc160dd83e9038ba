package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"snapcam/internal/camera"
	"snapcam/internal/imaging"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Camera  CameraConfig  `yaml:"camera"`
	Capture CaptureConfig `yaml:"capture"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	Mock bool `yaml:"mock"` // テストパターンカメラを使う

	// 空の場合は /dev/video* から自動で割り当てる
	FrontDevice string `yaml:"front_device"`
	BackDevice  string `yaml:"back_device"`

	InitialFacing string `yaml:"initial_facing"` // front / back
	IdealWidth    int    `yaml:"ideal_width"`
	IdealHeight   int    `yaml:"ideal_height"`
	FPS           int    `yaml:"fps"`
}

// CaptureConfig は静止画撮影の設定
type CaptureConfig struct {
	Format        string        `yaml:"format"`  // webp / jpeg
	Quality       int           `yaml:"quality"` // 1-100
	FlashDuration time.Duration `yaml:"flash_duration"`
}

// LogConfig はログの設定
type LogConfig struct {
	Level string `yaml:"level"` // debug / info / warn / error
}

// Default はデフォルト値の設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Camera: CameraConfig{
			InitialFacing: "back",
			IdealWidth:    camera.DefaultIdealWidth,
			IdealHeight:   camera.DefaultIdealHeight,
			FPS:           15,
		},
		Capture: CaptureConfig{
			Format:        string(imaging.FormatWebP),
			Quality:       92,
			FlashDuration: 200 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load は設定を読み込む
// pathが空の場合はデフォルト値に環境変数を適用したものを返す
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
		}
	}

	cfg.Server.Host = getEnvOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsIntOrDefault("PORT", cfg.Server.Port)
	cfg.Log.Level = getEnvOrDefault("SNAPCAM_LOG_LEVEL", cfg.Log.Level)

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// ポート0はテスト用のランダムポート
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New("タイムアウトに負の値は指定できません")
	}

	if _, ok := camera.ParseFacingMode(c.Camera.InitialFacing); !ok {
		return fmt.Errorf("無効なカメラの向き: %q", c.Camera.InitialFacing)
	}
	if c.Camera.IdealWidth <= 0 || c.Camera.IdealHeight <= 0 {
		return fmt.Errorf("無効な解像度: %dx%d", c.Camera.IdealWidth, c.Camera.IdealHeight)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("無効なFPS: %d", c.Camera.FPS)
	}

	switch imaging.Format(c.Capture.Format) {
	case imaging.FormatWebP, imaging.FormatJPEG:
	default:
		return fmt.Errorf("未対応の画像形式: %q", c.Capture.Format)
	}
	if c.Capture.Quality < 1 || c.Capture.Quality > 100 {
		return fmt.Errorf("画質は1から100の範囲で指定してください: %d", c.Capture.Quality)
	}
	if c.Capture.FlashDuration < 0 {
		return errors.New("フラッシュ時間に負の値は指定できません")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("無効なログレベル: %q", c.Log.Level)
	}

	return nil
}

// InitialFacing は初期のカメラの向きを返す
func (c *Config) InitialFacing() camera.FacingMode {
	facing, ok := camera.ParseFacingMode(c.Camera.InitialFacing)
	if !ok {
		return camera.FacingBack
	}
	return facing
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
