package camera

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// ErrorKind はカメラアクセス失敗の種類
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission_denied" // アクセスが拒否された
	KindNotFound         ErrorKind = "not_found"         // カメラが存在しない
	KindDeviceBusy       ErrorKind = "device_busy"       // 他のアプリが使用中
	KindOther            ErrorKind = "other"             // その他
)

// ユーザー向けメッセージ
const (
	MessagePermissionDenied = "Camera access denied. Please allow camera access to use this app."
	MessageNotFound         = "No camera found on your device."
	MessageDeviceBusy       = "Camera is already in use by another application."
	MessageOther            = "An error occurred while accessing the camera."
)

// AccessError はセッション取得時のエラー
type AccessError struct {
	Kind ErrorKind
	Err  error
}

// NewAccessError は新しいAccessErrorを作成する
func NewAccessError(kind ErrorKind, err error) *AccessError {
	return &AccessError{Kind: kind, Err: err}
}

func (e *AccessError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("カメラへのアクセスに失敗 (%s)", e.Kind)
	}
	return fmt.Sprintf("カメラへのアクセスに失敗 (%s): %v", e.Kind, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// KindOf はエラーの種類を返す
// AccessError でないエラーは KindOther として扱う
func KindOf(err error) ErrorKind {
	var accessErr *AccessError
	if errors.As(err, &accessErr) {
		switch accessErr.Kind {
		case KindPermissionDenied, KindNotFound, KindDeviceBusy:
			return accessErr.Kind
		}
	}
	return KindOther
}

// UserMessage はエラーをユーザー向けのメッセージに変換する
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindPermissionDenied:
		return MessagePermissionDenied
	case KindNotFound:
		return MessageNotFound
	case KindDeviceBusy:
		return MessageDeviceBusy
	default:
		return MessageOther
	}
}

// classifyOSError はOSのエラーをAccessErrorに分類する
func classifyOSError(err error) *AccessError {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENXIO):
		return NewAccessError(KindNotFound, err)
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return NewAccessError(KindPermissionDenied, err)
	case errors.Is(err, syscall.EBUSY):
		return NewAccessError(KindDeviceBusy, err)
	default:
		return NewAccessError(KindOther, err)
	}
}

// classifyFFmpegOutput はffmpegのstderr出力からエラーを分類する
func classifyFFmpegOutput(stderr string, err error) *AccessError {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "device or resource busy"):
		return NewAccessError(KindDeviceBusy, err)
	case strings.Contains(lower, "permission denied"):
		return NewAccessError(KindPermissionDenied, err)
	case strings.Contains(lower, "no such file or directory"), strings.Contains(lower, "no such device"):
		return NewAccessError(KindNotFound, err)
	default:
		return NewAccessError(KindOther, err)
	}
}
