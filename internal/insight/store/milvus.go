package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kart-io/los-insight/pkg/component/milvus"
)

var milvusOutputFields = []string{"filename", "title", "authors", "year", "content"}

// MilvusStore 实现基于 Milvus 的只读证据检索。
type MilvusStore struct {
	client     *milvus.Client
	collection string
}

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client, collection string) *MilvusStore {
	return &MilvusStore{client: client, collection: collection}
}

// Search 执行向量相似度搜索。
func (s *MilvusStore) Search(ctx context.Context, embedding []float32, topK int) ([]*SearchResult, error) {
	results, err := s.client.Search(ctx, s.collection, embedding, topK, milvusOutputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	out := make([]*SearchResult, len(results))
	for i, r := range results {
		out[i] = &SearchResult{
			Document: &Document{
				ID:       strconv.FormatInt(r.ID, 10),
				Filename: metaString(r.Metadata, "filename"),
				Title:    metaString(r.Metadata, "title"),
				Authors:  metaString(r.Metadata, "authors"),
				Year:     metaString(r.Metadata, "year"),
				Content:  metaString(r.Metadata, "content"),
			},
			Score: r.Score,
		}
	}
	return out, nil
}

// Count 获取集合行数。
func (s *MilvusStore) Count(ctx context.Context) (int64, error) {
	return s.client.GetCollectionStats(ctx, s.collection)
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// metaString 读取字符串元数据，int64 字段（如 year）转为十进制。
func metaString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

var _ VectorStore = (*MilvusStore)(nil)
