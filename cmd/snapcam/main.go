// Package main はsnapcamサーバーコマンドの実装です
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"snapcam/internal/camera"
	"snapcam/internal/config"
	"snapcam/internal/controller"
	"snapcam/internal/gallery"
	"snapcam/internal/imaging"
	"snapcam/internal/logging"
	"snapcam/internal/metrics"
	"snapcam/internal/preview"
	"snapcam/internal/server"
	"snapcam/internal/ui"
)

// コマンドラインオプション
var (
	configFlag string
	hostFlag   string
	portFlag   int
	mockFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "snapcam",
	Short: "ブラウザから操作するカメラ撮影サーバー",
	Long: `snapcam はカメラのライブプレビューと静止画撮影をHTTPで提供します。
前面カメラで撮影した写真は左右反転して保存され、ギャラリーに新しい順で並びます。

例:
  snapcam
  snapcam --config snapcam.yaml
  snapcam --mock --port 9090`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "設定ファイル (YAML)")
	rootCmd.Flags().StringVar(&hostFlag, "host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "サーバーのポート (デフォルト: 8080)")
	rootCmd.Flags().BoolVar(&mockFlag, "mock", false, "実機の代わりにテストパターンカメラを使う")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	// 設定を読み込む
	cfg, err := config.Load(configFlag)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	// コマンドラインオプションで設定を上書き
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = hostFlag
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = portFlag
	}
	if cmd.Flags().Changed("mock") {
		cfg.Camera.Mock = mockFlag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("設定の検証に失敗: %w", err)
	}

	logging.Init(cfg.Log.Level)
	gin.SetMode(gin.ReleaseMode)

	encoder, err := imaging.NewEncoder(imaging.Format(cfg.Capture.Format), cfg.Capture.Quality)
	if err != nil {
		return fmt.Errorf("エンコーダーの作成に失敗しました: %w", err)
	}

	model := ui.NewModel("", nil)
	broadcaster := ui.NewBroadcaster()
	broadcaster.Attach(model)
	hub := preview.NewHub()
	m := metrics.New()

	ctrl, err := controller.New(newAcquirer(cfg), model, gallery.New(), controller.Options{
		InitialFacing: cfg.InitialFacing(),
		IdealWidth:    cfg.Camera.IdealWidth,
		IdealHeight:   cfg.Camera.IdealHeight,
		Encoder:       encoder,
		FlashDuration: cfg.Capture.FlashDuration,
		Preview:       hub,
		Metrics:       m,
	})
	if err != nil {
		return fmt.Errorf("コントローラーの作成に失敗しました: %w", err)
	}

	srv := server.New(cfg, server.Deps{
		Controller:  ctrl,
		Model:       model,
		Broadcaster: broadcaster,
		Preview:     hub,
		Metrics:     m,
	})

	// サーバーを起動
	log.Info().
		Str("addr", cfg.ServerAddress()).
		Bool("mock", cfg.Camera.Mock).
		Str("format", string(encoder.Format())).
		Msg("snapcam サーバーを起動します")
	if err := srv.Start(context.Background()); err != nil {
		return fmt.Errorf("サーバーの起動に失敗しました: %w", err)
	}
	return nil
}

// newAcquirer は設定に応じたカメラを返す
func newAcquirer(cfg *config.Config) camera.Acquirer {
	if cfg.Camera.Mock {
		return camera.NewPatternAcquirer(0, 0, cfg.Camera.FPS)
	}
	return camera.NewV4L2Acquirer(camera.V4L2Config{
		FrontDevice: cfg.Camera.FrontDevice,
		BackDevice:  cfg.Camera.BackDevice,
		FPS:         cfg.Camera.FPS,
	}, camera.NewLinuxDiscovery())
}
