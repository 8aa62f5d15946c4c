package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestCodeToHTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{CodeInvalidParam, http.StatusBadRequest},
		{CodeProviderNotSet, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeTokenExpired, http.StatusUnauthorized},
		{CodeNovelNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeQuotaExceeded, http.StatusTooManyRequests},
		{CodeGenerationFailed, http.StatusInternalServerError},
		{CodeUnknown, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := codeToHTTPStatus(tc.code); got != tc.want {
			t.Fatalf("codeToHTTPStatus(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestPredefinedErrorStatuses(t *testing.T) {
	// 缺少 AI 配置属于用户可修复的配置问题，不作为服务端错误上报
	if ErrProviderNotSet.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("ErrProviderNotSet status = %d, want 400", ErrProviderNotSet.HTTPStatus)
	}
	if ErrQuotaExceeded.HTTPStatus != http.StatusTooManyRequests {
		t.Fatalf("ErrQuotaExceeded status = %d, want 429", ErrQuotaExceeded.HTTPStatus)
	}
}

func TestAsAppErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("boom")
	appErr := AsAppError(cause)

	if appErr.Code != CodeUnknown {
		t.Fatalf("Code = %s, want %s", appErr.Code, CodeUnknown)
	}
	if appErr.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("HTTPStatus = %d, want 500", appErr.HTTPStatus)
	}
	if !errors.Is(appErr, cause) {
		t.Fatal("wrapped error lost the cause")
	}
}

func TestAsAppErrorPassesThrough(t *testing.T) {
	if got := AsAppError(ErrNovelNotFound); got != ErrNovelNotFound {
		t.Fatalf("AsAppError returned %v, want the same instance", got)
	}
}
