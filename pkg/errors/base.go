package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// OK represents a successful operation.
var OK = Register(&Errno{
	Code:     0,
	HTTP:     http.StatusOK,
	GRPCCode: codes.OK,
	Message:  "Success",
})

var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = Register(&Errno{
		Code:     MakeCode(ServiceCommon, CategoryRequest, 0),
		HTTP:     http.StatusBadRequest,
		GRPCCode: codes.InvalidArgument,
		Message:  "Bad request",
	})

	// ErrInvalidParam indicates an invalid parameter.
	ErrInvalidParam = Register(&Errno{
		Code:     MakeCode(ServiceCommon, CategoryRequest, 1),
		HTTP:     http.StatusBadRequest,
		GRPCCode: codes.InvalidArgument,
		Message:  "Invalid parameter",
	})

	// ErrNotFound indicates a missing resource.
	ErrNotFound = Register(&Errno{
		Code:     MakeCode(ServiceCommon, CategoryResource, 0),
		HTTP:     http.StatusNotFound,
		GRPCCode: codes.NotFound,
		Message:  "Resource not found",
	})

	// ErrInternal indicates an unexpected server error.
	ErrInternal = Register(&Errno{
		Code:     MakeCode(ServiceCommon, CategoryInternal, 0),
		HTTP:     http.StatusInternalServerError,
		GRPCCode: codes.Internal,
		Message:  "Internal server error",
	})

	// ErrTimeout indicates an operation exceeded its deadline.
	ErrTimeout = Register(&Errno{
		Code:     MakeCode(ServiceCommon, CategoryTimeout, 0),
		HTTP:     http.StatusGatewayTimeout,
		GRPCCode: codes.DeadlineExceeded,
		Message:  "Operation timed out",
	})

	// ErrCache indicates a cache backend failure.
	ErrCache = Register(&Errno{
		Code:     MakeCode(ServiceInfraCache, CategoryCache, 0),
		HTTP:     http.StatusInternalServerError,
		GRPCCode: codes.Unavailable,
		Message:  "Cache unavailable",
	})
)
