package middleware

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	ctxlog "github.com/kart-io/los-insight/pkg/infra/logger"
	mwopts "github.com/kart-io/los-insight/pkg/options/middleware"
	"github.com/kart-io/los-insight/pkg/response"
)

// RequestID header names.
const (
	HeaderXRequestID = "X-Request-ID"
)

// RequestIDConfig defines the config for RequestID middleware.
type RequestIDConfig struct {
	// Header is the header name to use for request ID.
	// Default: "X-Request-ID"
	Header string

	// Generator is the function to generate request IDs.
	// Default: ULID
	Generator func() string
}

// RequestID returns a middleware that adds a unique request ID to each request.
// The request ID is added to:
//   - Response header (X-Request-ID)
//   - gin context under response.RequestIDKey (retrieved with GetRequestID)
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithOptions builds the middleware from configuration options.
func RequestIDWithOptions(opts *mwopts.RequestIDOptions) gin.HandlerFunc {
	cfg := RequestIDConfig{Header: opts.Header}
	switch opts.GeneratorType {
	case "random", "hex":
		cfg.Generator = generateHexID
	default:
		cfg.Generator = generateULID
	}
	return RequestIDWithConfig(cfg)
}

// RequestIDWithConfig returns a RequestID middleware with custom config.
func RequestIDWithConfig(config RequestIDConfig) gin.HandlerFunc {
	if config.Header == "" {
		config.Header = HeaderXRequestID
	}
	if config.Generator == nil {
		config.Generator = generateULID
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader(config.Header)
		if requestID == "" {
			requestID = config.Generator()
		}
		c.Header(config.Header, requestID)
		c.Set(response.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctxlog.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// GetRequestID returns the request ID of c, or "" when none was assigned.
func GetRequestID(c *gin.Context) string {
	return c.GetString(response.RequestIDKey)
}

func generateULID() string {
	return ulid.Make().String()
}

func generateHexID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
