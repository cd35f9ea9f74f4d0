// Package validator is the request validator used by gin binding. It reports
// field names by their json/form tag and translates failures to English or
// Chinese messages.
package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Language constants for i18n support.
const (
	LangEN = "en"
	LangZH = "zh"
)

// Validator wraps go-playground/validator with translations. It implements
// binding.StructValidator.
type Validator struct {
	validate *validator.Validate
	trans    map[string]ut.Translator
}

var _ binding.StructValidator = (*Validator)(nil)

var (
	globalValidator *Validator
	once            sync.Once
)

// Global returns the process-wide validator.
func Global() *Validator {
	once.Do(func() {
		globalValidator = New()
	})
	return globalValidator
}

// Install makes the global validator the one gin uses for ShouldBind*.
func Install() {
	binding.Validator = Global()
}

// New creates a validator reading the gin "binding" tag.
func New() *Validator {
	v := &Validator{
		validate: validator.New(),
		trans:    make(map[string]ut.Translator),
	}
	v.validate.SetTagName("binding")

	// 错误字段使用 json/form 标签名
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, zh.New())

	enTrans, _ := uni.GetTranslator(LangEN)
	_ = en_translations.RegisterDefaultTranslations(v.validate, enTrans)
	v.trans[LangEN] = enTrans

	zhTrans, _ := uni.GetTranslator(LangZH)
	_ = zh_translations.RegisterDefaultTranslations(v.validate, zhTrans)
	v.trans[LangZH] = zhTrans

	v.registerNotBlank()
	return v
}

// notblank 拒绝只含空白的字符串。
func (v *Validator) registerNotBlank() {
	_ = v.validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.String {
			return true
		}
		return strings.TrimSpace(f.String()) != ""
	})

	messages := map[string]string{
		LangEN: "{0} must not be blank",
		LangZH: "{0}不能为空白",
	}
	for lang, msg := range messages {
		msg := msg
		_ = v.validate.RegisterTranslation("notblank", v.trans[lang],
			func(t ut.Translator) error {
				return t.Add("notblank", msg, true)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				s, _ := t.T("notblank", fe.Field())
				return s
			},
		)
	}
}

// ValidateStruct implements binding.StructValidator. Pointers are followed
// and slices are validated element by element.
func (v *Validator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}

	value := reflect.ValueOf(obj)
	switch value.Kind() {
	case reflect.Ptr:
		if value.IsNil() {
			return nil
		}
		if value.Elem().Kind() != reflect.Struct {
			return v.ValidateStruct(value.Elem().Interface())
		}
		return v.validate.Struct(obj)
	case reflect.Struct:
		return v.validate.Struct(obj)
	case reflect.Slice, reflect.Array:
		for i := 0; i < value.Len(); i++ {
			if err := v.ValidateStruct(value.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// Engine implements binding.StructValidator.
func (v *Validator) Engine() any {
	return v.validate
}

// Translator returns the translator for lang, falling back to English.
func (v *Validator) Translator(lang string) ut.Translator {
	if t, ok := v.trans[lang]; ok {
		return t
	}
	return v.trans[LangEN]
}

// Translate converts go-playground errors to field errors in lang.
func (v *Validator) Translate(errs validator.ValidationErrors, lang string) *ValidationErrors {
	trans := v.Translator(lang)
	out := &ValidationErrors{Errors: make([]FieldError, 0, len(errs))}
	for _, fe := range errs {
		out.Errors = append(out.Errors, FieldError{
			Field:   fieldPath(fe),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: fe.Translate(trans),
		})
	}
	return out
}

// LangFromAcceptLanguage picks zh for any Chinese tag and en otherwise.
func LangFromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		if tag == "" || tag == "*" {
			continue
		}
		if strings.HasPrefix(tag, LangZH) {
			return LangZH
		}
		return LangEN
	}
	return LangEN
}

// fieldPath drops the top-level struct name from the namespace, so nested
// fields read "documents[0].filename".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
