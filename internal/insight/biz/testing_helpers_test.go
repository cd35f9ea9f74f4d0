package biz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/los-insight/internal/insight/store"
	"github.com/kart-io/los-insight/internal/pkg/clinical"
	"github.com/kart-io/los-insight/pkg/llm"
)

func f(v float64) *float64 { return &v }

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// newRecord 返回一个各项指标正常的住院记录。
func newRecord() *clinical.PatientRecord {
	r := &clinical.PatientRecord{
		ID:            "1",
		FirstName:     "Ada",
		LastName:      "Byron",
		Gender:        clinical.GenderFemale,
		Department:    "A",
		AdmissionDate: date("2024-03-01"),
		DischargeDate: date("2024-03-04"),
		DateOfBirth:   date("1980-06-15"),
		ReadmitCount:  "0",
		Labs: clinical.Labs{
			Glucose:    f(100),
			Creatinine: f(1.0),
			Hematocrit: f(14),
			Pulse:      f(75),
			BMI:        f(22),
		},
	}
	r.Derive(clinical.Percentiles{P75: 5, P90: 8})
	return r
}

// fakeChat 记录收到的提示词并返回预设结果。
type fakeChat struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	systems []string
}

func (c *fakeChat) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	var prompt, system string
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			system = m.Content
		case llm.RoleUser:
			prompt = m.Content
		}
	}
	return c.Generate(ctx, prompt, system)
}

func (c *fakeChat) Generate(_ context.Context, prompt, systemPrompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	c.systems = append(c.systems, systemPrompt)
	return c.reply, c.err
}

func (c *fakeChat) Name() string { return "fake" }

func (c *fakeChat) lastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.prompts) == 0 {
		return ""
	}
	return c.prompts[len(c.prompts)-1]
}

// slowChat 阻塞直到 ctx 结束。
type slowChat struct{}

func (slowChat) Chat(ctx context.Context, _ []llm.Message) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (s slowChat) Generate(ctx context.Context, _, _ string) (string, error) {
	return s.Chat(ctx, nil)
}

func (slowChat) Name() string { return "slow" }

var vocabulary = []string{"diabetes", "hyperglycemia", "kidney", "pneumonia", "anemia"}

// keywordEmbedder 按词表生成确定性的向量，首维为常量避免零向量。
type keywordEmbedder struct {
	err   error
	calls int
}

func (e *keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(vocabulary)+1)
	v[0] = 0.1
	for i, w := range vocabulary {
		if strings.Contains(lower, w) {
			v[i+1] = 1
		}
	}
	return v
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *keywordEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *keywordEmbedder) Name() string { return "keyword" }

var errEmbed = errors.New("embedding backend down")

func corpus() []*store.Document {
	return []*store.Document{
		{Filename: "diabetes_review.pdf", Title: "Glycemic control in inpatients", Authors: "Smith J", Year: "2019", Content: "Diabetes and hyperglycemia management during admission."},
		{Filename: "diabetes_review.pdf", Title: "Glycemic control in inpatients", Authors: "Smith J", Year: "2019", Content: "Second chunk about diabetes outcomes."},
		{Filename: "pneumonia_los.pdf", Title: "Pneumonia and length of stay", Authors: "Chen L", Year: "2021", Content: "Pneumonia prolongs hospital stays."},
		{Filename: "renal.pdf", Title: "Kidney injury", Authors: "Rao P", Year: "nan", Content: "Acute kidney injury in the elderly."},
	}
}

func newEvidence(emb llm.EmbeddingProvider) (*EvidenceIndex, *store.MemoryStore) {
	ms := store.NewMemoryStore()
	ingest := &keywordEmbedder{}
	if _, err := IngestCorpus(context.Background(), ms, ingest, corpus(), 2); err != nil {
		panic(err)
	}
	return NewEvidenceIndex(ms, emb, &EvidenceConfig{TopK: 3, Timeout: time.Second}, nil), ms
}
