package validator

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type document struct {
	Filename string `json:"filename" binding:"required,notblank"`
	Year     int    `json:"year" binding:"omitempty,gte=1900"`
}

type request struct {
	Documents []document `json:"documents" binding:"required,dive"`
}

func TestValidateStruct(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateStruct(nil))
	assert.NoError(t, v.ValidateStruct((*request)(nil)))
	assert.NoError(t, v.ValidateStruct(&request{Documents: []document{{Filename: "a.pdf", Year: 2020}}}))
	assert.NoError(t, v.ValidateStruct(42))

	err := v.ValidateStruct(&request{Documents: []document{{Filename: "  "}}})
	require.Error(t, err)
	verrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok)

	got := v.Translate(verrs, LangEN)
	assert.Equal(t, map[string]string{"documents[0].filename": "filename must not be blank"}, got.ByField())
	assert.Equal(t, "filename must not be blank", got.First())
	assert.Equal(t, "notblank", got.Errors[0].Tag)

	got = v.Translate(verrs, LangZH)
	assert.Equal(t, "filename不能为空白", got.First())
}

func TestValidateStruct_Slice(t *testing.T) {
	v := New()
	err := v.ValidateStruct([]document{{Filename: "a"}, {Filename: "b", Year: 10}})
	require.Error(t, err)

	verrs := err.(validator.ValidationErrors)
	got := v.Translate(verrs, "fr")
	assert.Equal(t, "year", got.Errors[0].Field)
	assert.Equal(t, "1900", got.Errors[0].Param)
	assert.Contains(t, got.Error(), "validation failed: year")
}

func TestLangFromAcceptLanguage(t *testing.T) {
	tests := map[string]string{
		"":                      LangEN,
		"zh-CN,zh;q=0.9":        LangZH,
		"ZH":                    LangZH,
		"en-US,zh;q=0.8":        LangEN,
		"*, zh-TW;q=0.5":        LangZH,
		"fr-FR,fr;q=0.9,en;q=8": LangEN,
	}
	for header, want := range tests {
		assert.Equal(t, want, LangFromAcceptLanguage(header), header)
	}
}

func TestInstall(t *testing.T) {
	old := binding.Validator
	defer func() { binding.Validator = old }()

	Install()
	assert.Same(t, Global(), binding.Validator)
	_, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
}
