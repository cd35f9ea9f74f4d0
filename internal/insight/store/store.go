package store

import (
	"context"
)

// Document 表示一段证据文档。
type Document struct {
	// ID 文档块 ID。
	ID string `json:"id"`
	// Filename 来源文件名，引用去重的键。
	Filename string `json:"filename"`
	Title    string `json:"title,omitempty"`
	Authors  string `json:"authors,omitempty"`
	Year     string `json:"year,omitempty"`
	// Content 文档内容。
	Content string `json:"content"`
	// Embedding 嵌入向量。
	Embedding []float32 `json:"-"`
}

// SearchResult 表示检索结果。
type SearchResult struct {
	Document *Document `json:"document"`
	// Score 相似度分数。
	Score float32 `json:"score"`
}

// VectorStore 定义证据检索所需的向量存储接口。
type VectorStore interface {
	// Search 向量相似度搜索，按分数降序返回。
	Search(ctx context.Context, embedding []float32, topK int) ([]*SearchResult, error)

	// Count 返回文档数量。
	Count(ctx context.Context) (int64, error)

	// Close 关闭连接。
	Close(ctx context.Context) error
}
