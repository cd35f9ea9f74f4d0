package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/kart-io/los-insight/pkg/errors"
	reqvalidator "github.com/kart-io/los-insight/pkg/validator"
)

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "request_id"

// Writer provides convenient methods to write responses to a gin context.
type Writer struct {
	ctx      *gin.Context
	withTime bool
}

// NewWriter creates a new response writer for the given context.
func NewWriter(c *gin.Context) *Writer {
	return &Writer{ctx: c}
}

// WithTimestamp enables automatic timestamp in responses.
func (w *Writer) WithTimestamp() *Writer {
	w.withTime = true
	return w
}

// prepare adds optional fields to the response.
func (w *Writer) prepare(r *Response) *Response {
	if w.withTime {
		r.Timestamp = time.Now().UnixMilli()
	}
	if id := w.ctx.GetString(RequestIDKey); id != "" {
		r.RequestID = id
	}
	return r
}

// OK sends a successful response with data.
func (w *Writer) OK(data interface{}) {
	resp := w.prepare(Success(data))
	w.ctx.JSON(resp.HTTPStatus(), resp)
}

// OKWithMessage sends a successful response with custom message.
func (w *Writer) OKWithMessage(message string, data interface{}) {
	resp := w.prepare(SuccessWithMessage(message, data))
	w.ctx.JSON(resp.HTTPStatus(), resp)
}

// Fail sends an error response using Errno.
func (w *Writer) Fail(e *errors.Errno) {
	resp := w.prepare(Err(e))
	w.ctx.AbortWithStatusJSON(e.HTTPStatus(), resp)
}

// FailWithError converts a standard error and sends it.
// If the error is an Errno, it uses it directly. Otherwise, it wraps it as ErrInternal.
func (w *Writer) FailWithError(err error) {
	w.Fail(errors.FromError(err))
}

// FailWithBindOrValidation handles binding or validation errors.
// Validation failures carry one translated message per field in Data; the
// language follows Accept-Language.
func (w *Writer) FailWithBindOrValidation(err error) {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		w.Fail(errors.ErrInvalidParam.WithMessage("invalid request: " + err.Error()))
		return
	}

	lang := reqvalidator.LangFromAcceptLanguage(w.ctx.GetHeader("Accept-Language"))
	translated := reqvalidator.Global().Translate(verrs, lang)
	resp := w.prepare(&Response{
		Code:     errors.ErrInvalidParam.Code,
		HTTPCode: http.StatusBadRequest,
		Message:  "validation failed",
		Data:     translated.ByField(),
	})
	w.ctx.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

// OK sends a successful response.
func OK(c *gin.Context, data interface{}) {
	NewWriter(c).OK(data)
}

// OKWithMessage sends a successful response with message.
func OKWithMessage(c *gin.Context, message string, data interface{}) {
	NewWriter(c).OKWithMessage(message, data)
}

// Fail sends an error response using Errno.
func Fail(c *gin.Context, e *errors.Errno) {
	NewWriter(c).Fail(e)
}

// FailWithError sends an error response from a standard error.
func FailWithError(c *gin.Context, err error) {
	NewWriter(c).FailWithError(err)
}

// FailWithBindOrValidation handles binding or validation errors.
func FailWithBindOrValidation(c *gin.Context, err error) {
	NewWriter(c).FailWithBindOrValidation(err)
}
