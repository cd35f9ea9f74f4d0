package store

import (
	"context"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kart-io/los-insight/pkg/utils/json"
)

// MemoryStore keeps the corpus in memory and ranks it by cosine similarity.
type MemoryStore struct {
	mu   sync.RWMutex
	docs []*Document
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add appends documents in ingestion order. Documents without an ID get a
// random one; documents without an embedding are rejected.
func (s *MemoryStore) Add(docs ...*Document) error {
	for _, d := range docs {
		if len(d.Embedding) == 0 {
			return fmt.Errorf("document %q has no embedding", d.Filename)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		s.docs = append(s.docs, d)
	}
	return nil
}

// Search ranks every document by cosine similarity. Ties keep ingestion order.
func (s *MemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*SearchResult, 0, len(s.docs))
	for _, d := range s.docs {
		if len(d.Embedding) != len(embedding) {
			continue
		}
		results = append(results, &SearchResult{Document: d, Score: Cosine(embedding, d.Embedding)})
	}

	slices.SortStableFunc(results, func(a, b *SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count implements VectorStore.
func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}

// Close implements VectorStore.
func (s *MemoryStore) Close(_ context.Context) error { return nil }

// Cosine returns the cosine similarity of a and b, 0 when either is a zero
// vector.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// corpusEntry is one element of the corpus JSON array. Year is often stored
// as a number or as the string "nan".
type corpusEntry struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	Authors   any       `json:"authors"`
	Year      any       `json:"year"`
	Content   string    `json:"content"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// LoadCorpus reads a JSON array of documents. Embeddings may be absent and
// filled in later.
func LoadCorpus(path string) ([]*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}

	var entries []corpusEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode corpus %s: %w", path, err)
	}

	docs := make([]*Document, 0, len(entries))
	for _, e := range entries {
		content := e.Content
		if content == "" {
			content = e.Text
		}
		docs = append(docs, &Document{
			ID:        e.ID,
			Filename:  e.Filename,
			Title:     e.Title,
			Authors:   stringify(e.Authors),
			Year:      stringify(e.Year),
			Content:   content,
			Embedding: e.Embedding,
		})
	}
	return docs, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := stringify(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

var _ VectorStore = (*MemoryStore)(nil)
