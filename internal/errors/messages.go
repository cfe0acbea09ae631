package errors

import (
	stderrors "errors"
	"fmt"
)

// Alert chrome used wherever an error message is presented to the user.
const (
	AlertTitle  = "문제 발생"
	AlertAction = "확인"
)

const (
	msgLocationUpdateFailed = "현재 위치를 불러오지 못했습니다. 잠시 후 다시 시도해 주세요."
	msgLocationAuthDenied   = "위치 정보를 비활성화하면 사용자의 현재 위치를 알 수 없습니다."
)

// Message returns the user-facing text for a location error kind. Codes that
// are not shown to the user fall back to the code itself.
func Message(code ErrorCode) string {
	switch code {
	case ErrCodeLocationUpdateFailed:
		return msgLocationUpdateFailed
	case ErrCodeLocationAuthDenied:
		return msgLocationAuthDenied
	default:
		return string(code)
	}
}

// LocationUpdateFailed creates the error a location provider reports when it
// cannot resolve a position.
func LocationUpdateFailed(cause error) *Error {
	return Wrap(cause, ErrCodeLocationUpdateFailed, msgLocationUpdateFailed)
}

// LocationAuthDenied creates the error for a denied or restricted authorization.
func LocationAuthDenied(status string) *Error {
	return New(ErrCodeLocationAuthDenied, msgLocationAuthDenied).
		WithDetail("status", status)
}

// LocationFailureMessage returns the text to show for a failed location
// update: the provider's own description when it has one, otherwise the
// fixed LocationUpdateFailed message.
func LocationFailureMessage(err error) string {
	if err == nil {
		return msgLocationUpdateFailed
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		if appErr.Message != "" {
			return appErr.Message
		}
		return msgLocationUpdateFailed
	}
	if text := err.Error(); text != "" {
		return text
	}
	return msgLocationUpdateFailed
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(key, reason string) *Error {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s: %s", key, reason)).
		WithDetail("key", key)
}

// ProviderUnavailable creates an error for a collaborator that cannot be reached
func ProviderUnavailable(provider string, cause error) *Error {
	return Wrap(cause, ErrCodeProviderUnavailable, fmt.Sprintf("provider '%s' unavailable", provider)).
		WithDetail("provider", provider)
}

// SearchFailed creates an error for a nearby-store search where every source failed
func SearchFailed(sources []string, cause error) *Error {
	return Wrap(cause, ErrCodeSearchFailed, "nearby store search failed").
		WithDetail("sources", sources)
}
