package biz

import (
	apierrors "github.com/kart-io/los-insight/pkg/errors"
	"github.com/kart-io/los-insight/pkg/llm"
)

// ErrnoForFailure 将模型失败分类映射为错误码。缺少凭据按 unauthorized 处理。
func ErrnoForFailure(kind llm.FailureKind) *apierrors.Errno {
	switch kind {
	case llm.FailureUnauthorized, llm.FailureUnavailable:
		return apierrors.ErrLLMUnauthorized
	case llm.FailureQuotaExceeded:
		return apierrors.ErrLLMQuotaExceeded
	case llm.FailureRateLimited:
		return apierrors.ErrLLMRateLimited
	case llm.FailureTransient:
		return apierrors.ErrLLMTransient
	default:
		return apierrors.ErrLLMUnknown
	}
}
