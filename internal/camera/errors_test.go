package camera

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"testing"
)

func TestUserMessage(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{"アクセス拒否", NewAccessError(KindPermissionDenied, nil), "Camera access denied. Please allow camera access to use this app."},
		{"カメラなし", NewAccessError(KindNotFound, nil), "No camera found on your device."},
		{"使用中", NewAccessError(KindDeviceBusy, nil), "Camera is already in use by another application."},
		{"その他", NewAccessError(KindOther, nil), "An error occurred while accessing the camera."},
		{"未知の種類", NewAccessError(ErrorKind("overconstrained"), nil), "An error occurred while accessing the camera."},
		{"AccessError以外", errors.New("boom"), "An error occurred while accessing the camera."},
		{"ラップされたAccessError", fmt.Errorf("start: %w", NewAccessError(KindDeviceBusy, nil)), "Camera is already in use by another application."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := UserMessage(tc.err); got != tc.want {
				t.Errorf("UserMessage() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClassifyOSError(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"存在しない", &fs.PathError{Op: "open", Path: "/dev/video9", Err: syscall.ENOENT}, KindNotFound},
		{"権限なし", &fs.PathError{Op: "open", Path: "/dev/video0", Err: syscall.EACCES}, KindPermissionDenied},
		{"使用中", &fs.PathError{Op: "open", Path: "/dev/video0", Err: syscall.EBUSY}, KindDeviceBusy},
		{"その他", &fs.PathError{Op: "open", Path: "/dev/video0", Err: syscall.EIO}, KindOther},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyOSError(tc.err)
			if got.Kind != tc.want {
				t.Errorf("classifyOSError() kind = %s, want %s", got.Kind, tc.want)
			}
			if !errors.Is(got, tc.err) {
				t.Error("Expected original error to be wrapped")
			}
		})
	}
}

func TestClassifyFFmpegOutput(t *testing.T) {
	testCases := []struct {
		stderr string
		want   ErrorKind
	}{
		{"[video4linux2,v4l2 @ 0x1] ioctl(VIDIOC_STREAMON): Device or resource busy", KindDeviceBusy},
		{"/dev/video0: Permission denied", KindPermissionDenied},
		{"/dev/video7: No such file or directory", KindNotFound},
		{"Invalid argument", KindOther},
	}

	for _, tc := range testCases {
		t.Run(string(tc.want), func(t *testing.T) {
			got := classifyFFmpegOutput(tc.stderr, errors.New("exit status 1"))
			if got.Kind != tc.want {
				t.Errorf("classifyFFmpegOutput(%q) = %s, want %s", tc.stderr, got.Kind, tc.want)
			}
		})
	}
}

func TestFacingMode(t *testing.T) {
	if FacingBack.Toggle() != FacingFront || FacingFront.Toggle() != FacingBack {
		t.Error("Toggle should flip between front and back")
	}

	testCases := []struct {
		in   string
		want FacingMode
		ok   bool
	}{
		{"front", FacingFront, true},
		{"user", FacingFront, true},
		{"back", FacingBack, true},
		{"environment", FacingBack, true},
		{"side", "", false},
	}
	for _, tc := range testCases {
		got, ok := ParseFacingMode(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseFacingMode(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
