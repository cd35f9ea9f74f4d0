package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/los-insight/pkg/errors"
	"github.com/kart-io/los-insight/pkg/response"
)

// Recovery returns a middleware that turns a panic into an ErrInternal
// response. The stack goes to the log, never to the client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("Panic recovered",
					"path", c.Request.URL.Path,
					"request_id", GetRequestID(c),
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				response.Fail(c, errors.ErrInternal)
			}
		}()
		c.Next()
	}
}
