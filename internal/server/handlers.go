package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"snapcam/internal/camera"
	"snapcam/internal/controller"
	"snapcam/internal/gallery"
)

// ErrorResponse はエラー時のレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// PhotoResponse は写真のメタデータ
type PhotoResponse struct {
	ID         string            `json:"id"`
	URL        string            `json:"url"`
	MIMEType   string            `json:"mime_type"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Size       int               `json:"size"`
	Facing     camera.FacingMode `json:"facing"`
	Mirrored   bool              `json:"mirrored"`
	CapturedAt time.Time         `json:"captured_at"`
}

func newPhotoResponse(p gallery.Photo) PhotoResponse {
	return PhotoResponse{
		ID:         p.ID,
		URL:        "/api/photos/" + p.ID,
		MIMEType:   p.MIMEType,
		Width:      p.Width,
		Height:     p.Height,
		Size:       p.Size(),
		Facing:     p.Facing,
		Mirrored:   p.Mirrored,
		CapturedAt: p.CapturedAt,
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// handleRoot は画面のHTMLを返す
func (s *Server) handleRoot(c *gin.Context) {
	data, err := indexHTML()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "index_unavailable", err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

// handleStatus はシステム状態取得エンドポイント
func (s *Server) handleStatus(c *gin.Context) {
	sessionID := ""
	if session := s.controller.Session(); session != nil {
		sessionID = session.ID()
	}

	latestPhoto := ""
	if latest, ok := s.controller.Gallery().Latest(); ok {
		latestPhoto = latest.ID
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "running",
		"server": gin.H{
			"host": s.config.Server.Host,
			"port": s.config.Server.Port,
		},
		"camera": gin.H{
			"facing":  s.controller.Facing(),
			"session": sessionID,
			"mock":    s.config.Camera.Mock,
		},
		"photos":       s.controller.Gallery().Len(),
		"latest_photo": latestPhoto,
		"clients":      s.broadcaster.Clients(),
		"timestamp":    time.Now(),
	})
}

// handleState は現在の表示状態を返す
func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.model.State())
}

// handleEvents は表示状態の変更をSSEで配信する
func (s *Server) handleEvents(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx

	ch, unsub := s.broadcaster.Subscribe()
	defer unsub()

	// 接続直後に現在の状態を送る
	c.SSEvent("state", s.model.State())
	c.Writer.Flush()

	// 無通信時のハートビート
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			// 文字列はJSONのまま data 行に書き込まれる
			c.SSEvent("state", msg)
			c.Writer.Flush()

		case <-ticker.C:
			if _, err := c.Writer.WriteString(": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()

		case <-clientGone:
			return
		case <-s.closing:
			return
		}
	}
}

// acceptCameraJob はカメラ操作を開始して 202 を返す
func (s *Server) acceptCameraJob(c *gin.Context, name string, job func(ctx context.Context) error) {
	s.runCameraJob(name, job)
	c.JSON(http.StatusAccepted, gin.H{
		"status":    "accepted",
		"operation": name,
	})
}

// handleStartCamera はカメラを(再)開始する
func (s *Server) handleStartCamera(c *gin.Context) {
	s.acceptCameraJob(c, "start", s.controller.StartCapture)
}

// handleRetryCamera はエラーパネルの再試行
func (s *Server) handleRetryCamera(c *gin.Context) {
	s.acceptCameraJob(c, "retry", s.controller.Retry)
}

// handleToggleCamera は前面/背面を切り替える
func (s *Server) handleToggleCamera(c *gin.Context) {
	s.acceptCameraJob(c, "toggle", s.controller.ToggleFacing)
}

// handleCapturePhoto は静止画を撮影する
func (s *Server) handleCapturePhoto(c *gin.Context) {
	photo, err := s.controller.CapturePhoto(c.Request.Context())
	if err != nil {
		if errors.Is(err, controller.ErrNoActiveSession) {
			abortWithError(c, http.StatusConflict, "no_active_session", "アクティブなカメラセッションがありません")
			return
		}
		log.Error().Err(err).Msg("撮影に失敗しました")
		abortWithError(c, http.StatusInternalServerError, "capture_failed", "撮影に失敗しました")
		return
	}

	c.Header("Location", "/api/photos/"+photo.ID)
	c.JSON(http.StatusCreated, newPhotoResponse(photo))
}

// handleListPhotos は写真の一覧を新しい順で返す
func (s *Server) handleListPhotos(c *gin.Context) {
	photos := s.controller.Gallery().List()
	response := make([]PhotoResponse, 0, len(photos))
	for _, p := range photos {
		response = append(response, newPhotoResponse(p))
	}

	c.JSON(http.StatusOK, gin.H{
		"photos": response,
	})
}

// handleGetPhoto は写真の画像データを返す
// ?encoding=dataurl の場合はdata URLの文字列で返す
func (s *Server) handleGetPhoto(c *gin.Context) {
	photo, found := s.controller.Gallery().Get(c.Param("id"))
	if !found {
		abortWithError(c, http.StatusNotFound, "photo_not_found", "指定された写真が見つかりません")
		return
	}

	if c.Query("encoding") == "dataurl" {
		c.String(http.StatusOK, photo.DataURL())
		return
	}

	c.Header("Cache-Control", "private, max-age=31536000, immutable")
	c.Data(http.StatusOK, photo.MIMEType, photo.Data)
}

// handleOpenGallery はギャラリーを開く
func (s *Server) handleOpenGallery(c *gin.Context) {
	s.controller.OpenGallery()
	c.JSON(http.StatusOK, s.model.State())
}

// handleCloseGallery はギャラリーを閉じる
func (s *Server) handleCloseGallery(c *gin.Context) {
	s.controller.CloseGallery()
	c.JSON(http.StatusOK, s.model.State())
}

// handlePreview はMJPEGストリーミングエンドポイント
func (s *Server) handlePreview(c *gin.Context) {
	// カメラがアクティブか確認
	if s.preview.SessionID() == "" {
		abortWithError(c, http.StatusServiceUnavailable, "camera_not_active", "カメラがアクティブではありません")
		return
	}

	frames, unsub := s.preview.Subscribe()
	defer unsub()

	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	// クライアント切断を検知するためのコンテキスト
	clientGone := c.Request.Context().Done()

	// ストリーミングループ
	// セッションが切り替わっても同じ接続で配信を続ける
	for {
		select {
		case <-clientGone:
			return
		case <-s.closing:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := writeMJPEGFrame(c.Writer, frame); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// writeMJPEGFrame はマルチパートの1パートとしてフレームを書き込む
func writeMJPEGFrame(w gin.ResponseWriter, frame []byte) error {
	if _, err := w.WriteString("--frame\r\nContent-Type: image/jpeg\r\n\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}
