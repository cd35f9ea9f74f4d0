package biz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/los-insight/internal/insight/store"
)

func TestEvidenceIndex_Search(t *testing.T) {
	idx, ms := newEvidence(&keywordEmbedder{})

	n, err := ms.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.EqualValues(t, 4, idx.Count(context.Background()))

	docs := idx.Search(context.Background(), []string{"Kidney dysfunction"}, 1)
	require.Len(t, docs, 1)
	assert.Equal(t, "renal.pdf", docs[0].Document.Filename)
	assert.Equal(t, "renal (Rao P)", docs[0].Citation)
	assert.Equal(t, "Acute kidney injury in the elderly.", docs[0].Excerpt)
}

func TestEvidenceIndex_DegradesToEmpty(t *testing.T) {
	empty := NewEvidenceIndex(store.NewMemoryStore(), &keywordEmbedder{}, nil, nil)
	assert.Empty(t, empty.Search(context.Background(), []string{"Anemia"}, 3))

	unconfigured := NewEvidenceIndex(nil, nil, nil, nil)
	docs := unconfigured.Search(context.Background(), []string{"Anemia"}, 3)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
	assert.Zero(t, unconfigured.Count(context.Background()))

	failing, _ := newEvidence(&keywordEmbedder{err: errEmbed})
	assert.Empty(t, failing.Search(context.Background(), []string{"Anemia"}, 3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	idx, _ := newEvidence(&keywordEmbedder{})
	assert.Empty(t, idx.Search(ctx, []string{"Anemia"}, 3))
}

func TestEvidenceIndex_NoConditions(t *testing.T) {
	emb := &keywordEmbedder{}
	idx := NewEvidenceIndex(store.NewMemoryStore(), emb, &EvidenceConfig{Timeout: time.Second}, nil)
	assert.Empty(t, idx.Search(context.Background(), nil, 3))
	assert.Zero(t, emb.calls)
}

func TestIngestCorpus(t *testing.T) {
	ms := store.NewMemoryStore()
	docs := corpus()
	docs[0].Embedding = []float32{1, 0, 0, 0, 0, 0}

	emb := &keywordEmbedder{}
	n, err := IngestCorpus(context.Background(), ms, emb, docs, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, emb.calls)
	assert.Equal(t, []float32{1, 0, 0, 0, 0, 0}, docs[0].Embedding)

	_, err = IngestCorpus(context.Background(), store.NewMemoryStore(), nil, corpus(), 2)
	assert.Error(t, err)

	_, err = IngestCorpus(context.Background(), store.NewMemoryStore(), &keywordEmbedder{err: errEmbed}, corpus(), 2)
	assert.ErrorIs(t, err, errEmbed)
}
