package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/kart-io/los-insight/pkg/utils/httpclient"
)

// FailureKind 模型调用失败的分类。
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureUnauthorized  FailureKind = "unauthorized"
	FailureQuotaExceeded FailureKind = "quota_exceeded"
	FailureRateLimited   FailureKind = "rate_limited"
	FailureTransient     FailureKind = "transient"
	FailureUnknown       FailureKind = "unknown"
	// FailureUnavailable 未配置供应商（缺少凭据）。
	FailureUnavailable FailureKind = "unavailable"
)

var (
	// ErrNotConfigured is returned when no chat provider is configured.
	ErrNotConfigured = errors.New("llm provider not configured")
	// ErrTemporarilyUnavailable marks failures that short-circuit without a call.
	ErrTemporarilyUnavailable = errors.New("llm provider temporarily unavailable")
)

// Classify 将供应商错误归类。超时按 transient 处理。
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, ErrNotConfigured) {
		return FailureUnavailable
	}
	if errors.Is(err, ErrTemporarilyUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTransient
	}

	if se, ok := httpclient.AsStatusError(err); ok {
		if kind := classifyBody(se.Body); kind != FailureNone {
			return kind
		}
		switch {
		case se.StatusCode == http.StatusUnauthorized, se.StatusCode == http.StatusForbidden:
			return FailureUnauthorized
		case se.StatusCode == http.StatusPaymentRequired:
			return FailureQuotaExceeded
		case se.StatusCode == http.StatusTooManyRequests:
			return FailureRateLimited
		case se.StatusCode == http.StatusRequestTimeout, se.StatusCode >= 500:
			return FailureTransient
		}
		return FailureUnknown
	}

	if kind := classifyBody(err.Error()); kind != FailureNone {
		return kind
	}
	return FailureUnknown
}

func classifyBody(body string) FailureKind {
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "incorrect api key"),
		strings.Contains(lower, "invalid_api_key"),
		strings.Contains(lower, "invalid api key"):
		return FailureUnauthorized
	case strings.Contains(lower, "insufficient_quota"),
		strings.Contains(lower, "exceeded your current quota"):
		return FailureQuotaExceeded
	case strings.Contains(lower, "rate_limit"),
		strings.Contains(lower, "rate limit"):
		return FailureRateLimited
	}
	return FailureNone
}

// UserMessage 返回面向用户的固定提示文本。
func (k FailureKind) UserMessage() string {
	switch k {
	case FailureUnauthorized:
		return "The language model rejected the configured API key. Check the key and try again."
	case FailureQuotaExceeded:
		return "The language model quota has been exceeded. Check the account's plan and billing details."
	case FailureRateLimited:
		return "The language model is rate limiting requests. Wait a moment and try again."
	case FailureTransient:
		return "The language model is temporarily unavailable or timed out. Please try again shortly."
	case FailureUnavailable:
		return "No language model API key is configured. Configure one to enable AI-generated answers."
	case FailureNone:
		return ""
	default:
		return "The language model request failed."
	}
}
