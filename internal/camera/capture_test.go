package camera

import (
	"bytes"
	"strings"
	"testing"
)

func TestFrameSplitter(t *testing.T) {
	frame1 := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	frame2 := []byte{0xFF, 0xD8, 0x03, 0xFF, 0xD9}

	stream := append([]byte{0x00, 0x00}, frame1...)
	stream = append(stream, frame2...)

	testCases := []struct {
		name   string
		chunks [][]byte
	}{
		{"一括", [][]byte{stream}},
		{"マーカー途中で分割", [][]byte{stream[:3], stream[3:7], stream[7:]}},
		{"1バイトずつ", splitBytes(stream)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			splitter := &frameSplitter{}
			var frames [][]byte
			for _, chunk := range tc.chunks {
				frames = append(frames, splitter.Write(chunk)...)
			}

			if len(frames) != 2 {
				t.Fatalf("Expected 2 frames, got %d", len(frames))
			}
			if !bytes.Equal(frames[0], frame1) {
				t.Errorf("frame1 mismatch: %x", frames[0])
			}
			if !bytes.Equal(frames[1], frame2) {
				t.Errorf("frame2 mismatch: %x", frames[1])
			}
		})
	}
}

func TestV4L2Capturer_StreamArgs(t *testing.T) {
	capturer := NewV4L2Capturer("/dev/video0", 1920, 1080, 15)
	args := capturer.streamArgs()

	joined := strings.Join(args, " ")
	for _, want := range []string{"-video_size 1920x1080", "-i /dev/video0", "-an", "-c:v mjpeg"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected args to contain %q: %s", want, joined)
		}
	}
}

func splitBytes(data []byte) [][]byte {
	chunks := make([][]byte, len(data))
	for i := range data {
		chunks[i] = data[i : i+1]
	}
	return chunks
}
