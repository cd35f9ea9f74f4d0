package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider 模拟供应商实现，用于测试。
type mockProvider struct {
	name       string
	embedCalls int
	embedTexts []string
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.embedCalls++
	m.embedTexts = append(m.embedTexts, texts...)
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = []float32{float32(len(text)), 0.5}
	}
	return result, nil
}

func (m *mockProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := m.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *mockProvider) Chat(_ context.Context, _ []Message) (string, error) {
	return "mock response", nil
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ string) (string, error) {
	return "mock generated text", nil
}

func TestRegisterAndNewProvider(t *testing.T) {
	RegisterProvider("test-provider", func(config map[string]any) (Provider, error) {
		name := "test-provider"
		if n, ok := config["name"].(string); ok {
			name = n
		}
		return &mockProvider{name: name}, nil
	})

	provider, err := NewProvider("test-provider", map[string]any{"name": "custom-name"})
	require.NoError(t, err)
	assert.Equal(t, "custom-name", provider.Name())

	chat, err := NewChatProvider("test-provider", nil)
	require.NoError(t, err)
	assert.Equal(t, "test-provider", chat.Name())

	embed, err := NewEmbeddingProvider("test-provider", nil)
	require.NoError(t, err)
	assert.Equal(t, "test-provider", embed.Name())

	assert.Contains(t, ListProviders(), "test-provider")
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider("unknown-provider", nil)
	assert.Error(t, err)

	_, err = NewChatProvider("unknown-provider", nil)
	assert.ErrorContains(t, err, "chat")
}

func TestListProvidersSorted(t *testing.T) {
	RegisterProvider("zz-last", func(map[string]any) (Provider, error) { return &mockProvider{}, nil })
	RegisterProvider("aa-first", func(map[string]any) (Provider, error) { return &mockProvider{}, nil })

	names := ListProviders()
	assert.IsIncreasing(t, names)
}

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages("question", "system")
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, RoleUser, msgs[1].Role)

	msgs = BuildMessages("question", "")
	require.Len(t, msgs, 1)
	assert.Equal(t, "question", msgs[0].Content)
}
