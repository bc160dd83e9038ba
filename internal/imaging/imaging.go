// Package imaging はフレームの静止画化（描画・左右反転・エンコード）を担う
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Render はフレームをネイティブサイズのオフスクリーン画像に描画する
// mirror が true の場合は垂直軸で左右反転する
func Render(src image.Image, mirror bool) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if !mirror {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}

	// x' = (Min.X + W) - x, y' = y - Min.Y
	s2d := f64.Aff3{
		-1, 0, float64(b.Min.X + b.Dx()),
		0, 1, float64(-b.Min.Y),
	}
	draw.NearestNeighbor.Transform(dst, s2d, src, b, draw.Src, nil)
	return dst
}

// Format は静止画のエンコード形式
type Format string

const (
	FormatWebP Format = "webp"
	FormatJPEG Format = "jpeg"
)

// MIMEType は形式に対応するMIMEタイプを返す
func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	default:
		return "image/webp"
	}
}

// Encoder は画像を圧縮形式にエンコードする
type Encoder struct {
	format  Format
	quality int
}

// NewEncoder は新しいEncoderを作成する
// quality は1-100で、範囲外の場合はエラー
func NewEncoder(format Format, quality int) (*Encoder, error) {
	switch format {
	case FormatWebP, FormatJPEG:
	default:
		return nil, fmt.Errorf("サポートされていない形式: %s", format)
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("無効な品質: %d", quality)
	}
	return &Encoder{format: format, quality: quality}, nil
}

// Format はエンコード形式を返す
func (e *Encoder) Format() Format {
	return e.format
}

// Encode は画像をエンコードし、データとMIMEタイプを返す
func (e *Encoder) Encode(img image.Image) ([]byte, string, error) {
	var buf bytes.Buffer

	switch e.format {
	case FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
			return nil, "", fmt.Errorf("JPEGエンコードに失敗: %w", err)
		}
	default:
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(e.quality), Lossless: false}); err != nil {
			return nil, "", fmt.Errorf("WebPエンコードに失敗: %w", err)
		}
	}

	if buf.Len() == 0 {
		return nil, "", fmt.Errorf("%sエンコードの結果が空です", e.format)
	}

	return buf.Bytes(), e.format.MIMEType(), nil
}
