package options

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerOptionsFlags(t *testing.T) {
	o := NewServerOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	for _, name := range []string{
		"http.addr",
		"log.level",
		"middleware.request-id.header",
		"cohort.path",
		"evidence.backend",
		"notes.backend",
		"redis.host",
		"milvus.address",
		"mongodb.host",
		"notes.collection",
		"chat.provider",
		"chat.api-key",
		"embedding.model",
		"tracing.enabled",
		"tracing.exporter-type",
		"cohort.watch",
	} {
		assert.NotNil(t, fs.Lookup(name), name)
	}

	require.NoError(t, fs.Parse([]string{"--chat.provider= OpenAI ", "--cohort.path=/data/los.csv"}))
	require.NoError(t, o.Complete())
	assert.Equal(t, "openai", o.ChatOptions.Provider)
	assert.Equal(t, "/data/los.csv", o.CohortOptions.Path)
}

func TestServerOptionsValidate(t *testing.T) {
	o := NewServerOptions()
	require.NoError(t, o.Complete())
	assert.NoError(t, o.Validate())

	o.ChatOptions.Provider = "unknown"
	o.EvidenceOptions.Backend = "faiss"
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported llm provider")
	assert.Contains(t, err.Error(), "unsupported evidence.backend")

	o = NewServerOptions()
	o.NotesOptions.Backend = "mongo"
	o.MongoDBOptions.Database = ""
	err = o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongodb.database")
}

func TestServerOptionsConfig(t *testing.T) {
	o := NewServerOptions()
	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Same(t, o.CohortOptions, cfg.CohortOptions)
	assert.Same(t, o.ChatOptions, cfg.ChatOptions)
	assert.Same(t, o.TracingOptions, cfg.TracingOptions)
}
