package middleware

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/kart-io/los-insight/pkg/options"
)

// RequestIDOptions defines request ID middleware options.
// 此结构体必须保持可 JSON 序列化，运行时依赖（如 Generator）应通过函数参数注入。
type RequestIDOptions struct {
	Header string `json:"header" mapstructure:"header"`
	// GeneratorType 指定 ID 生成器类型
	// 支持的值:
	//   - "random" 或 "hex": 加密随机十六进制（32 字符）
	//   - "ulid": ULID（默认，26 字符，时间可排序）
	GeneratorType string `json:"generator_type" mapstructure:"generator_type"`
}

// NewRequestIDOptions creates default request ID middleware options.
func NewRequestIDOptions() *RequestIDOptions {
	return &RequestIDOptions{
		Header:        "X-Request-ID",
		GeneratorType: "ulid",
	}
}

// AddFlags adds flags for request ID options to the specified FlagSet.
func (o *RequestIDOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Header, options.Join(prefixes...)+"middleware.request-id.header", o.Header, "Request ID header name.")
	fs.StringVar(&o.GeneratorType, options.Join(prefixes...)+"middleware.request-id.generator", o.GeneratorType, "ID generator type: ulid (default) or random/hex.")
}

// Validate validates the request ID options.
func (o *RequestIDOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Header == "" {
		errs = append(errs, errors.New("request ID header name is required"))
	}
	// 验证生成器类型
	validTypes := map[string]bool{
		"random": true,
		"hex":    true,
		"ulid":   true,
		"":       true, // 空值将使用默认值
	}
	if !validTypes[o.GeneratorType] {
		errs = append(errs, errors.New("invalid generator type: must be 'random', 'hex', or 'ulid'"))
	}
	return errs
}
