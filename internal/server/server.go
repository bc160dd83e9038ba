package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"snapcam/internal/config"
	"snapcam/internal/controller"
	"snapcam/internal/logging"
	"snapcam/internal/metrics"
	"snapcam/internal/preview"
	"snapcam/internal/ui"
)

// Deps はサーバーが操作する部品
type Deps struct {
	Controller  *controller.Controller
	Model       *ui.Model
	Broadcaster *ui.Broadcaster
	Preview     *preview.Hub
	Metrics     *metrics.Metrics
}

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config      *config.Config
	controller  *controller.Controller
	model       *ui.Model
	broadcaster *ui.Broadcaster
	preview     *preview.Hub
	metrics     *metrics.Metrics

	router     *gin.Engine
	httpServer *http.Server

	// カメラ操作はリクエストとは独立したコンテキストで実行する
	baseCtx    context.Context
	cancelBase context.CancelFunc
	jobs       sync.WaitGroup

	// ストリーミング中の接続に停止を知らせる
	closing   chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	listener net.Listener
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, deps Deps) *Server {
	baseCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:      cfg,
		controller:  deps.Controller,
		model:       deps.Model,
		broadcaster: deps.Broadcaster,
		preview:     deps.Preview,
		metrics:     deps.Metrics,
		baseCtx:     baseCtx,
		cancelBase:  cancel,
		closing:     make(chan struct{}),
	}

	router := gin.New()
	router.Use(gin.Recovery(), logging.GinMiddleware())
	s.router = router
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	r := s.router

	// ヘルスチェックエンドポイント
	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/state", s.handleState)
	api.GET("/events", s.handleEvents)

	api.POST("/camera/start", s.handleStartCamera)
	api.POST("/camera/retry", s.handleRetryCamera)
	api.POST("/camera/toggle", s.handleToggleCamera)

	api.POST("/photos", s.handleCapturePhoto)
	api.GET("/photos", s.handleListPhotos)
	api.GET("/photos/:id", s.handleGetPhoto)

	api.POST("/gallery/open", s.handleOpenGallery)
	api.POST("/gallery/close", s.handleCloseGallery)

	api.GET("/preview", s.handlePreview)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
	}

	// 画面と静的ファイル
	if assets, err := assetsFS(); err != nil {
		log.Error().Err(err).Msg("静的ファイルを配信できません")
	} else {
		r.StaticFS("/assets", assets)
	}
	r.GET("/", s.handleRoot)
}

// runCameraJob はカメラ操作をバックグラウンドで実行する
// 結果は表示状態に反映されるので、ここではログに残すだけ
func (s *Server) runCameraJob(name string, job func(ctx context.Context) error) {
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		err := job(s.baseCtx)
		switch {
		case err == nil:
		case errors.Is(err, controller.ErrSuperseded):
			log.Debug().Str("job", name).Msg("新しい要求に置き換えられました")
		default:
			log.Debug().Err(err).Str("job", name).Msg("カメラ操作が失敗しました")
		}
	}()
}

// Addr は実際にリッスンしているアドレスを返す
// 起動前は設定値を返す
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.ServerAddress()
}

// Start はサーバーを起動し、最初のカメラ取得を開始する
// コンテキストのキャンセルかSIGINT/SIGTERMでグレースフルに停止する
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.ServerAddress())
	if err != nil {
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Info().Str("addr", listener.Addr().String()).Msg("HTTPサーバーを起動しています")
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// ページの準備ができたのでカメラを開始する
	s.runCameraJob("initial-start", s.controller.StartCapture)

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Info().Msg("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("シグナルを受信しました")
	case err := <-shutdownCh:
		_ = s.Shutdown()
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンし、カメラを解放する
func (s *Server) Shutdown() error {
	log.Info().Msg("サーバーをシャットダウンしています...")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// SSEとMJPEGの接続は自分からは終わらないので先に閉じる
	s.closeOnce.Do(func() { close(s.closing) })

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("サーバーのシャットダウンに失敗: %w", err))
	}

	// 実行中の取得を打ち切ってから解放する
	s.cancelBase()
	s.jobs.Wait()
	if err := s.controller.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("カメラの解放に失敗: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	log.Info().Msg("サーバーが正常にシャットダウンされました")
	return nil
}
