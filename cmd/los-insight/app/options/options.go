// Package options contains flags and options for initializing the insight server.
package options

import (
	"strings"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/los-insight/internal/insight"
	genericoptions "github.com/kart-io/los-insight/pkg/options"
	cohortopts "github.com/kart-io/los-insight/pkg/options/cohort"
	evidenceopts "github.com/kart-io/los-insight/pkg/options/evidence"
	httpopts "github.com/kart-io/los-insight/pkg/options/http"
	llmopts "github.com/kart-io/los-insight/pkg/options/llm"
	logopts "github.com/kart-io/los-insight/pkg/options/logger"
	middlewareopts "github.com/kart-io/los-insight/pkg/options/middleware"
	milvusopts "github.com/kart-io/los-insight/pkg/options/milvus"
	mongodbopts "github.com/kart-io/los-insight/pkg/options/mongodb"
	notesopts "github.com/kart-io/los-insight/pkg/options/notes"
	redisopts "github.com/kart-io/los-insight/pkg/options/redis"
	tracingopts "github.com/kart-io/los-insight/pkg/options/tracing"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MiddlewareOptions contains HTTP middleware configuration.
	MiddlewareOptions *middlewareopts.Options `json:"middleware" mapstructure:"middleware"`

	// CohortOptions contains the admissions dataset configuration.
	CohortOptions *cohortopts.Options `json:"cohort" mapstructure:"cohort"`

	// EvidenceOptions contains evidence retrieval configuration.
	EvidenceOptions *evidenceopts.Options `json:"evidence" mapstructure:"evidence"`

	// NotesOptions contains clinical notes storage configuration.
	NotesOptions *notesopts.Options `json:"notes" mapstructure:"notes"`

	// RedisOptions contains Redis configuration.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// MongoDBOptions contains MongoDB configuration for the mongo notes backend.
	MongoDBOptions *mongodbopts.Options `json:"mongodb" mapstructure:"mongodb"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// TracingOptions contains OpenTelemetry tracing configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:       httpopts.NewOptions(),
		LogOptions:        logopts.NewOptions(),
		MiddlewareOptions: middlewareopts.NewOptions(),
		CohortOptions:     cohortopts.NewOptions(),
		EvidenceOptions:   evidenceopts.NewOptions(),
		NotesOptions:      notesopts.NewOptions(),
		RedisOptions:      redisopts.NewOptions(),
		MilvusOptions:     milvusopts.NewOptions(),
		MongoDBOptions:    mongodbopts.NewOptions(),
		ChatOptions:       llmopts.NewChatOptions(),
		EmbeddingOptions:  llmopts.NewEmbeddingOptions(),
		TracingOptions:    tracingopts.NewOptions(),
	}
}

// AddFlags adds every option group to fs.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	genericoptions.AddAllFlags(fs,
		o.HTTPOptions,
		o.LogOptions,
		o.MiddlewareOptions,
		o.CohortOptions,
		o.EvidenceOptions,
		o.NotesOptions,
		o.RedisOptions,
		o.MilvusOptions,
		o.MongoDBOptions,
		o.TracingOptions,
	)
	// 两个 LLM 供应商共用同一组选项，按角色区分前缀
	o.ChatOptions.AddFlags(fs, "chat")
	o.EmbeddingOptions.AddFlags(fs, "embedding")
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	o.ChatOptions.Provider = strings.ToLower(strings.TrimSpace(o.ChatOptions.Provider))
	o.EmbeddingOptions.Provider = strings.ToLower(strings.TrimSpace(o.EmbeddingOptions.Provider))
	if err := o.MongoDBOptions.Complete(); err != nil {
		return err
	}
	if o.CohortOptions.Workers <= 0 {
		o.CohortOptions.Workers = cohortopts.NewOptions().Workers
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := genericoptions.ValidateAll(
		o.HTTPOptions,
		o.LogOptions,
		o.MiddlewareOptions,
		o.CohortOptions,
		o.EvidenceOptions,
		o.NotesOptions,
		o.ChatOptions,
		o.TracingOptions,
	)
	if o.EvidenceOptions.Enabled {
		errs = append(errs, o.EmbeddingOptions.Validate()...)
	}
	if o.NotesOptions.Backend == notesopts.BackendRedis || (o.EvidenceOptions.Cache != nil && o.EvidenceOptions.Cache.Enabled) {
		errs = append(errs, o.RedisOptions.Validate()...)
	}
	if o.NotesOptions.Backend == notesopts.BackendMongo {
		errs = append(errs, o.MongoDBOptions.Validate()...)
	}
	if o.EvidenceOptions.Backend == evidenceopts.BackendMilvus {
		errs = append(errs, o.MilvusOptions.Validate()...)
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds an insight.Config based on ServerOptions.
func (o *ServerOptions) Config() (*insight.Config, error) {
	return &insight.Config{
		HTTPOptions:       o.HTTPOptions,
		LogOptions:        o.LogOptions,
		MiddlewareOptions: o.MiddlewareOptions,
		CohortOptions:     o.CohortOptions,
		EvidenceOptions:   o.EvidenceOptions,
		NotesOptions:      o.NotesOptions,
		RedisOptions:      o.RedisOptions,
		MilvusOptions:     o.MilvusOptions,
		MongoDBOptions:    o.MongoDBOptions,
		ChatOptions:       o.ChatOptions,
		EmbeddingOptions:  o.EmbeddingOptions,
		TracingOptions:    o.TracingOptions,
	}, nil
}
