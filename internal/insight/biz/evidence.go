package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/los-insight/internal/insight/metrics"
	"github.com/kart-io/los-insight/internal/insight/store"
	"github.com/kart-io/los-insight/internal/pkg/citation"
	ctxlog "github.com/kart-io/los-insight/pkg/infra/logger"
	"github.com/kart-io/los-insight/pkg/infra/tracing"
	"github.com/kart-io/los-insight/pkg/llm"
)

// DefaultTopK 默认检索文档数量。
const DefaultTopK = 3

const excerptRunes = 400

// ScoredDocument 是一条带相似度分数的证据。
type ScoredDocument struct {
	Document citation.Document `json:"document"`
	Excerpt  string            `json:"excerpt"`
	Score    float32           `json:"score"`
	Citation string            `json:"citation"`
}

// EvidenceConfig 证据检索配置。
type EvidenceConfig struct {
	// TopK 默认返回数量。
	TopK int
	// Timeout 单次检索（含向量化）超时。
	Timeout time.Duration
}

// EvidenceIndex 负责证据检索。检索是尽力而为的：任何失败都返回空结果。
type EvidenceIndex struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
	config   *EvidenceConfig
	metrics  *metrics.InsightMetrics
}

// NewEvidenceIndex 创建证据索引。store 或 embedder 为 nil 时检索总是返回空。
func NewEvidenceIndex(vs store.VectorStore, embedder llm.EmbeddingProvider, config *EvidenceConfig, m *metrics.InsightMetrics) *EvidenceIndex {
	if config == nil {
		config = &EvidenceConfig{}
	}
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	if m == nil {
		m = metrics.Get()
	}
	return &EvidenceIndex{store: vs, embedder: embedder, config: config, metrics: m}
}

// Search 以条件列表拼接的查询文本检索证据。topK <= 0 时使用默认值。
func (e *EvidenceIndex) Search(ctx context.Context, conditions []string, topK int) []ScoredDocument {
	if len(conditions) == 0 {
		return []ScoredDocument{}
	}
	if topK <= 0 {
		topK = e.config.TopK
	}

	ctx, span := tracing.StartSpan(ctx, "insight.evidence.search")
	defer span.End()

	start := time.Now()
	docs, err := e.search(ctx, strings.Join(conditions, ", "), topK)
	e.metrics.RecordRetrieval(time.Since(start), len(docs), err)
	if err != nil {
		tracing.RecordError(ctx, err)
		ctxlog.FromContext(ctx).Warnw("Evidence retrieval unavailable", "conditions", conditions, "error", err.Error())
		return []ScoredDocument{}
	}
	return docs
}

func (e *EvidenceIndex) search(ctx context.Context, query string, topK int) ([]ScoredDocument, error) {
	if e.store == nil || e.embedder == nil {
		return nil, fmt.Errorf("evidence index not configured")
	}
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	vec, err := e.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := e.store.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]ScoredDocument, 0, len(results))
	for _, r := range results {
		if r == nil || r.Document == nil {
			continue
		}
		doc := citation.Document{
			Filename: r.Document.Filename,
			Title:    r.Document.Title,
			Authors:  r.Document.Authors,
			Year:     r.Document.Year,
		}
		out = append(out, ScoredDocument{
			Document: doc,
			Excerpt:  truncateRunes(strings.TrimSpace(r.Document.Content), excerptRunes),
			Score:    r.Score,
			Citation: citation.Format(doc),
		})
	}
	return out, nil
}

// Count 返回语料文档数，失败时为 0。
func (e *EvidenceIndex) Count(ctx context.Context) int64 {
	if e.store == nil {
		return 0
	}
	n, err := e.store.Count(ctx)
	if err != nil {
		logger.Warnw("Failed to count evidence documents", "error", err.Error())
		return 0
	}
	return n
}

// IngestCorpus 为缺少向量的文档批量生成嵌入并写入内存存储。
// 使用与检索相同的 embedder，保证向量空间一致。
func IngestCorpus(ctx context.Context, ms *store.MemoryStore, embedder llm.EmbeddingProvider, docs []*store.Document, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 32
	}

	var pending []*store.Document
	for _, d := range docs {
		if len(d.Embedding) == 0 {
			pending = append(pending, d)
		}
	}
	if len(pending) > 0 && embedder == nil {
		return 0, fmt.Errorf("%d documents need embeddings but no embedding provider is configured", len(pending))
	}

	for i := 0; i < len(pending); i += batchSize {
		end := min(i+batchSize, len(pending))
		batch := pending[i:end]

		texts := make([]string, len(batch))
		for j, d := range batch {
			texts[j] = d.Content
		}
		vecs, err := embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed corpus batch %d-%d: %w", i, end, err)
		}
		if len(vecs) != len(batch) {
			return 0, fmt.Errorf("embed corpus batch %d-%d: got %d vectors", i, end, len(vecs))
		}
		for j, d := range batch {
			d.Embedding = vecs[j]
		}
	}

	if err := ms.Add(docs...); err != nil {
		return 0, err
	}
	logger.Infow("Evidence corpus ingested", "documents", len(docs), "embedded", len(pending))
	return len(docs), nil
}
