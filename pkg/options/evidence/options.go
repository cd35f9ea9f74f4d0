// Package evidence provides evidence retrieval options.
package evidence

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/los-insight/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Backend 类型。
const (
	BackendMemory = "memory"
	BackendMilvus = "milvus"
)

// Options contains evidence retrieval configuration.
type Options struct {
	// Enabled 关闭时所有问答都走直接提示词。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Backend 向量存储后端（memory, milvus）。
	Backend string `json:"backend" mapstructure:"backend"`

	// CorpusPath memory 后端加载的语料 JSON 文件。
	CorpusPath string `json:"corpus-path" mapstructure:"corpus-path"`

	// Collection Milvus 集合名称。
	Collection string `json:"collection" mapstructure:"collection"`

	// TopK 检索返回的文档数量。
	TopK int `json:"top-k" mapstructure:"top-k"`

	// EmbeddingDim 向量维度。
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// SearchTimeout 单次检索超时。
	SearchTimeout time.Duration `json:"search-timeout" mapstructure:"search-timeout"`

	// LabSignals 是否从化验值推导检索条件。
	LabSignals bool `json:"lab-signals" mapstructure:"lab-signals"`

	// Cache 向量缓存配置。
	Cache *CacheOptions `json:"cache" mapstructure:"cache"`

	// Breaker 熔断器配置。
	Breaker *BreakerOptions `json:"breaker" mapstructure:"breaker"`
}

// CacheOptions 向量缓存配置。
type CacheOptions struct {
	Enabled bool          `json:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `json:"ttl" mapstructure:"ttl"`
	Prefix  string        `json:"prefix" mapstructure:"prefix"`
}

// BreakerOptions 熔断器配置。
type BreakerOptions struct {
	Enabled     bool          `json:"enabled" mapstructure:"enabled"`
	MaxFailures int           `json:"max-failures" mapstructure:"max-failures"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Enabled:       true,
		Backend:       BackendMemory,
		CorpusPath:    "pubmed_corpus.json",
		Collection:    "pubmed_evidence",
		TopK:          3,
		EmbeddingDim:  768,
		SearchTimeout: 10 * time.Second,
		Cache: &CacheOptions{
			TTL:    24 * time.Hour,
			Prefix: "los-insight:emb:",
		},
		Breaker: &BreakerOptions{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
	}
}

// AddFlags adds flags for evidence options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.BoolVar(&o.Enabled, p+"evidence.enabled", o.Enabled, "Enable evidence retrieval.")
	fs.StringVar(&o.Backend, p+"evidence.backend", o.Backend, "Vector store backend (memory, milvus).")
	fs.StringVar(&o.CorpusPath, p+"evidence.corpus-path", o.CorpusPath, "Corpus JSON file for the memory backend.")
	fs.StringVar(&o.Collection, p+"evidence.collection", o.Collection, "Milvus collection name.")
	fs.IntVar(&o.TopK, p+"evidence.top-k", o.TopK, "Number of evidence documents per answer.")
	fs.IntVar(&o.EmbeddingDim, p+"evidence.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.DurationVar(&o.SearchTimeout, p+"evidence.search-timeout", o.SearchTimeout, "Timeout of a single evidence search.")
	fs.BoolVar(&o.LabSignals, p+"evidence.lab-signals", o.LabSignals, "Derive search conditions from abnormal lab values.")

	if o.Cache == nil {
		o.Cache = &CacheOptions{}
	}
	fs.BoolVar(&o.Cache.Enabled, p+"evidence.cache.enabled", o.Cache.Enabled, "Cache embeddings in redis.")
	fs.DurationVar(&o.Cache.TTL, p+"evidence.cache.ttl", o.Cache.TTL, "Embedding cache TTL.")
	fs.StringVar(&o.Cache.Prefix, p+"evidence.cache.prefix", o.Cache.Prefix, "Embedding cache key prefix.")

	if o.Breaker == nil {
		o.Breaker = &BreakerOptions{}
	}
	fs.BoolVar(&o.Breaker.Enabled, p+"evidence.breaker.enabled", o.Breaker.Enabled, "Wrap the chat provider in a circuit breaker.")
	fs.IntVar(&o.Breaker.MaxFailures, p+"evidence.breaker.max-failures", o.Breaker.MaxFailures, "Consecutive failures before the breaker opens.")
	fs.DurationVar(&o.Breaker.Timeout, p+"evidence.breaker.timeout", o.Breaker.Timeout, "Open duration before the breaker half-opens.")
}

// Validate validates the evidence options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Backend {
	case BackendMemory, BackendMilvus:
	default:
		errs = append(errs, fmt.Errorf("unsupported evidence.backend %q", o.Backend))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("evidence.top-k must be positive"))
	}
	if o.Backend == BackendMilvus && o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("evidence.embedding-dim must be positive"))
	}
	if o.SearchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("evidence.search-timeout must be positive"))
	}
	if o.Cache != nil && o.Cache.Enabled && o.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("evidence.cache.ttl must not be negative"))
	}
	if o.Breaker != nil && o.Breaker.Enabled && o.Breaker.MaxFailures <= 0 {
		errs = append(errs, fmt.Errorf("evidence.breaker.max-failures must be positive"))
	}
	return errs
}
