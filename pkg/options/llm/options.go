// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/los-insight/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义 LLM 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（openai, ollama）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥。为空时 openai 供应商不可用，问答走规则回退。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 单次请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Organization 组织 ID（OpenAI 可选）。
	Organization string `json:"organization" mapstructure:"organization"`

	// MaxTokens 最大生成 token 数。
	MaxTokens int `json:"max-tokens" mapstructure:"max-tokens"`

	// Temperature 采样温度。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// PresencePenalty 存在惩罚。
	PresencePenalty float64 `json:"presence-penalty" mapstructure:"presence-penalty"`
}

// NewChatOptions 创建默认 Chat 供应商配置。
func NewChatOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:        "openai",
		BaseURL:         "https://api.openai.com/v1",
		Model:           "gpt-3.5-turbo",
		Timeout:         60 * time.Second,
		MaxTokens:       600,
		Temperature:     0.6,
		PresencePenalty: 0.1,
	}
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider: "ollama",
		BaseURL:  "http://localhost:11434",
		Model:    "nomic-embed-text",
		Timeout:  30 * time.Second,
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":         o.BaseURL,
		"api_key":          o.APIKey,
		"embed_model":      o.Model,
		"chat_model":       o.Model,
		"timeout":          o.Timeout,
		"organization":     o.Organization,
		"max_tokens":       o.MaxTokens,
		"temperature":      o.Temperature,
		"presence_penalty": o.PresencePenalty,
	}
}

// AddFlags adds flags for LLM provider options. The prefix distinguishes
// the chat provider ("chat") from the embedding provider ("embedding").
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "LLM provider (openai, ollama).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "LLM API base URL.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "LLM API key.")
	fs.StringVar(&o.Model, p+"model", o.Model, "LLM model name.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "LLM request timeout.")
	fs.StringVar(&o.Organization, p+"organization", o.Organization, "LLM organization ID (optional).")
	fs.IntVar(&o.MaxTokens, p+"max-tokens", o.MaxTokens, "Maximum tokens to generate.")
	fs.Float64Var(&o.Temperature, p+"temperature", o.Temperature, "Sampling temperature.")
	fs.Float64Var(&o.PresencePenalty, p+"presence-penalty", o.PresencePenalty, "Presence penalty.")
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Provider {
	case "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("unsupported llm provider %q", o.Provider))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("base-url is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2]"))
	}
	if o.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max-tokens must not be negative"))
	}
	return errs
}

// Configured 判断供应商是否具备可用凭据。openai 需要 API key。
func (o *ProviderOptions) Configured() bool {
	if o == nil {
		return false
	}
	if o.Provider == "openai" {
		return o.APIKey != ""
	}
	return o.BaseURL != ""
}
