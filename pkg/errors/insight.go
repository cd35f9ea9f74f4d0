package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Length-of-stay insight errors (service 20).
var (
	// ErrPatientNotFound indicates the requested admission is not in the cohort.
	ErrPatientNotFound = Register(&Errno{
		Code:     MakeCode(ServiceInsight, CategoryResource, 1),
		HTTP:     http.StatusNotFound,
		GRPCCode: codes.NotFound,
		Message:  "Patient not found",
	})

	// ErrInvalidRecord indicates a patient record failed validation.
	ErrInvalidRecord = Register(&Errno{
		Code:     MakeCode(ServiceInsight, CategoryRequest, 1),
		HTTP:     http.StatusBadRequest,
		GRPCCode: codes.InvalidArgument,
		Message:  "Invalid patient record",
	})

	// ErrEmptyQuestion indicates an answer request without a question.
	ErrEmptyQuestion = Register(&Errno{
		Code:     MakeCode(ServiceInsight, CategoryRequest, 2),
		HTTP:     http.StatusBadRequest,
		GRPCCode: codes.InvalidArgument,
		Message:  "Question is required",
	})

	// ErrCohortNotLoaded indicates no cohort snapshot is available.
	ErrCohortNotLoaded = Register(&Errno{
		Code:     MakeCode(ServiceInsight, CategoryInternal, 1),
		HTTP:     http.StatusServiceUnavailable,
		GRPCCode: codes.Unavailable,
		Message:  "Cohort not loaded",
	})

	// ErrNoteStore indicates the notes backend failed.
	ErrNoteStore = Register(&Errno{
		Code:     MakeCode(ServiceInsight, CategoryDatabase, 1),
		HTTP:     http.StatusInternalServerError,
		GRPCCode: codes.Unavailable,
		Message:  "Clinical notes unavailable",
	})

	// ErrEvidenceUnavailable indicates the evidence corpus could not be loaded.
	ErrEvidenceUnavailable = Register(&Errno{
		Code:     MakeCode(ServiceInsight, CategoryInternal, 2),
		HTTP:     http.StatusServiceUnavailable,
		GRPCCode: codes.Unavailable,
		Message:  "Evidence corpus unavailable",
	})
)

// Language-model provider errors (service 94).
var (
	// ErrLLMUnauthorized indicates a bad or missing credential.
	ErrLLMUnauthorized = Register(&Errno{
		Code:     MakeCode(ServiceThirdPartyLLM, CategoryAuth, 1),
		HTTP:     http.StatusUnauthorized,
		GRPCCode: codes.Unauthenticated,
		Message:  "Language model credential rejected",
	})

	// ErrLLMQuotaExceeded indicates a billing or usage limit.
	ErrLLMQuotaExceeded = Register(&Errno{
		Code:     MakeCode(ServiceThirdPartyLLM, CategoryPermission, 1),
		HTTP:     http.StatusPaymentRequired,
		GRPCCode: codes.ResourceExhausted,
		Message:  "Language model quota exceeded",
	})

	// ErrLLMRateLimited indicates the provider throttled the call.
	ErrLLMRateLimited = Register(&Errno{
		Code:     MakeCode(ServiceThirdPartyLLM, CategoryRateLimit, 1),
		HTTP:     http.StatusTooManyRequests,
		GRPCCode: codes.ResourceExhausted,
		Message:  "Language model rate limited",
	})

	// ErrLLMTransient indicates a timeout or temporary provider failure.
	ErrLLMTransient = Register(&Errno{
		Code:     MakeCode(ServiceThirdPartyLLM, CategoryNetwork, 1),
		HTTP:     http.StatusServiceUnavailable,
		GRPCCode: codes.Unavailable,
		Message:  "Language model temporarily unavailable",
	})

	// ErrLLMUnknown indicates an unclassified provider failure.
	ErrLLMUnknown = Register(&Errno{
		Code:     MakeCode(ServiceThirdPartyLLM, CategoryInternal, 1),
		HTTP:     http.StatusBadGateway,
		GRPCCode: codes.Unknown,
		Message:  "Language model request failed",
	})
)
