package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/los-insight/pkg/errors"
	reqvalidator "github.com/kart-io/los-insight/pkg/validator"
)

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		c.Set(RequestIDKey, "req-1")
		h(c)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestOK(t *testing.T) {
	w, resp := serve(t, func(c *gin.Context) { OK(c, gin.H{"a": 1}) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.True(t, resp.IsSuccess())
}

func TestFailWithError(t *testing.T) {
	w, resp := serve(t, func(c *gin.Context) {
		FailWithError(c, fmt.Errorf("wrapped: %w", errors.ErrPatientNotFound.WithMessage("Patient 7 not found")))
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.ErrPatientNotFound.Code, resp.Code)
	assert.Equal(t, "Patient 7 not found", resp.Message)
	assert.Nil(t, resp.Data)

	w, resp = serve(t, func(c *gin.Context) { FailWithError(c, fmt.Errorf("boom")) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.ErrInternal.Code, resp.Code)
}

func TestFailWithBindOrValidation(t *testing.T) {
	type req struct {
		Name string `json:"name" binding:"required"`
	}

	w, resp := serve(t, func(c *gin.Context) {
		var body req
		FailWithBindOrValidation(c, c.ShouldBindJSON(&body))
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrInvalidParam.Code, resp.Code)
	assert.Contains(t, resp.Message, "invalid request")
}

func TestFailWithBindOrValidation_Translated(t *testing.T) {
	type req struct {
		Name string `json:"name" binding:"required"`
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		FailWithBindOrValidation(c, reqvalidator.Global().ValidateStruct(&req{}))
	})

	for lang, want := range map[string]string{
		"":               "name is a required field",
		"zh-CN,zh;q=0.9": "name为必填字段",
	} {
		httpReq := httptest.NewRequest(http.MethodPost, "/", nil)
		httpReq.Header.Set("Accept-Language", lang)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httpReq)

		var resp struct {
			Code    int               `json:"code"`
			Message string            `json:"message"`
			Data    map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, errors.ErrInvalidParam.Code, resp.Code)
		assert.Equal(t, "validation failed", resp.Message)
		assert.Equal(t, want, resp.Data["name"], lang)
	}
}
