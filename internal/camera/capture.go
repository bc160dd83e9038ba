package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// V4L2Capturer はffmpeg経由でV4L2デバイスからMJPEGフレームを取得する
type V4L2Capturer struct {
	devicePath string
	width      int
	height     int
	fps        int
}

// NewV4L2Capturer は新しいV4L2Capturerを作成する
func NewV4L2Capturer(devicePath string, width, height, fps int) *V4L2Capturer {
	return &V4L2Capturer{
		devicePath: devicePath,
		width:      width,
		height:     height,
		fps:        fps,
	}
}

// ProbeDevice はデバイスファイルを開けるか確認する
func (c *V4L2Capturer) ProbeDevice() error {
	file, err := os.OpenFile(c.devicePath, os.O_RDWR, 0)
	if err != nil {
		return classifyOSError(err)
	}
	_ = file.Close()
	return nil
}

// streamArgs はストリーミング用のffmpeg引数を返す
func (c *V4L2Capturer) streamArgs() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", c.width, c.height),
		"-r", strconv.Itoa(c.fps),
		"-i", c.devicePath,
		"-an",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"-",
	}
}

// StartStream は連続キャプチャを開始する
// ffmpegが終了するとframeChanはクローズされ、異常終了時はerrorChanに分類済みエラーを送る
func (c *V4L2Capturer) StartStream(ctx context.Context, frameChan chan<- []byte, errorChan chan<- error) {
	defer close(frameChan)

	cmd := exec.CommandContext(ctx, "ffmpeg", c.streamArgs()...)

	var stderr bytes.Buffer
	var stderrMu sync.Mutex
	cmd.Stderr = writerFunc(func(p []byte) (int, error) {
		stderrMu.Lock()
		defer stderrMu.Unlock()
		return stderr.Write(p)
	})

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		errorChan <- NewAccessError(KindOther, fmt.Errorf("stdoutパイプの作成に失敗: %w", err))
		return
	}

	if err := cmd.Start(); err != nil {
		errorChan <- NewAccessError(KindOther, fmt.Errorf("ffmpegの起動に失敗: %w", err))
		return
	}

	splitter := &frameSplitter{}
	buffer := make([]byte, 256*1024)
	for {
		n, readErr := stdout.Read(buffer)
		if n > 0 {
			for _, frame := range splitter.Write(buffer[:n]) {
				select {
				case frameChan <- frame:
				case <-ctx.Done():
					_ = cmd.Wait()
					return
				}
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				log.Debug().Err(readErr).Str("device", c.devicePath).Msg("フレーム読み取りエラー")
			}
			break
		}
	}

	waitErr := cmd.Wait()
	if waitErr != nil && ctx.Err() == nil {
		stderrMu.Lock()
		output := stderr.String()
		stderrMu.Unlock()
		errorChan <- classifyFFmpegOutput(output, fmt.Errorf("ffmpegが終了しました: %w (stderr: %s)", waitErr, output))
	}
}

// frameSplitter はMJPEGバイト列をSOI/EOIマーカーでフレームに分割する
type frameSplitter struct {
	buf bytes.Buffer
}

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// Write はデータを追加し、完成したフレームを返す
func (s *frameSplitter) Write(p []byte) [][]byte {
	s.buf.Write(p)

	var frames [][]byte
	for {
		data := s.buf.Bytes()
		startIdx := bytes.Index(data, jpegSOI)
		if startIdx == -1 {
			// 開始マーカーの前半だけが末尾にある場合は残す
			if len(data) > 0 && data[len(data)-1] == 0xFF {
				s.buf.Reset()
				s.buf.WriteByte(0xFF)
			} else {
				s.buf.Reset()
			}
			return frames
		}

		endIdx := bytes.Index(data[startIdx+2:], jpegEOI)
		if endIdx == -1 {
			if startIdx > 0 {
				rest := append([]byte(nil), data[startIdx:]...)
				s.buf.Reset()
				s.buf.Write(rest)
			}
			return frames
		}

		endIdx += startIdx + 2 + len(jpegEOI)
		frame := make([]byte, endIdx-startIdx)
		copy(frame, data[startIdx:endIdx])
		frames = append(frames, frame)

		rest := append([]byte(nil), data[endIdx:]...)
		s.buf.Reset()
		s.buf.Write(rest)
	}
}

// writerFunc は関数をio.Writerとして扱う
type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}
