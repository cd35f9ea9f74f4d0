package resilience

import (
	"context"

	"github.com/kart-io/los-insight/pkg/llm"
)

// BreakerChatProvider 带熔断保护的 Chat Provider。熔断器打开时直接返回
// ErrCircuitBreakerOpen，由调用方走回退逻辑。
type BreakerChatProvider struct {
	provider llm.ChatProvider
	cb       *CircuitBreaker
}

// NewBreakerChatProvider 创建带熔断保护的 Chat Provider。
func NewBreakerChatProvider(provider llm.ChatProvider, config *CircuitBreakerConfig) *BreakerChatProvider {
	return &BreakerChatProvider{
		provider: provider,
		cb:       NewCircuitBreaker(config),
	}
}

// Chat 进行多轮对话。
func (b *BreakerChatProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	var out string
	err := b.cb.Execute(func() error {
		var err error
		out, err = b.provider.Chat(ctx, messages)
		return err
	})
	return out, err
}

// Generate 根据提示生成文本。
func (b *BreakerChatProvider) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	var out string
	err := b.cb.Execute(func() error {
		var err error
		out, err = b.provider.Generate(ctx, prompt, systemPrompt)
		return err
	})
	return out, err
}

// Name 返回供应商名称。
func (b *BreakerChatProvider) Name() string {
	return b.provider.Name()
}

// CircuitBreaker 获取熔断器实例（用于监控）。
func (b *BreakerChatProvider) CircuitBreaker() *CircuitBreaker {
	return b.cb
}

var _ llm.ChatProvider = (*BreakerChatProvider)(nil)
