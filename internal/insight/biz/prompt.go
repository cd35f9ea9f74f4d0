package biz

import (
	"fmt"
	"strings"

	"github.com/kart-io/los-insight/internal/pkg/clinical"
)

// SystemPrompt 临床助手系统提示词。
const SystemPrompt = `You are a senior clinical AI assistant with expertise in internal medicine, diagnostics and inpatient care. Provide comprehensive, evidence-based answers for the clinician asking about this admission.

Clinical Guidelines:
1. Provide a detailed, professional medical analysis
2. Interpret laboratory values in clinical context, using the normal ranges given
3. Suggest differential considerations when relevant
4. Recommend appropriate diagnostic workup or monitoring
5. Explain the medical reasoning clearly
6. Address patient-specific risk factors and the length-of-stay context
7. When research evidence is provided, ground the answer in it and cite it with its [n] marker
8. Pay special attention to any clinical notes and uploaded files provided
9. Do not append a reference list; sources are shown separately`

const filePreviewRunes = 500

// FileContext 描述随问题上传的文件。
type FileContext struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Summary string `json:"summary,omitempty"`
	Content string `json:"content,omitempty"`
}

// PromptInput 组装提示词所需的全部输入。
type PromptInput struct {
	Record     *clinical.PatientRecord
	Question   string
	Note       string
	File       *FileContext
	Conditions []string
	Evidence   []ScoredDocument
}

// BuildPrompt 生成用户提示词。
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString(PatientSummary(in.Record))

	if note := strings.TrimSpace(in.Note); note != "" {
		b.WriteString("\nAdditional Clinical Notes:\n")
		b.WriteString(note)
		b.WriteString("\n")
	}

	if f := in.File; f != nil && f.Name != "" {
		b.WriteString("\nUploaded File:\n")
		fmt.Fprintf(&b, "- Filename: %s\n", f.Name)
		if f.Type != "" {
			fmt.Fprintf(&b, "- Type: %s\n", f.Type)
		}
		if f.Summary != "" {
			fmt.Fprintf(&b, "- Summary: %s\n", f.Summary)
		}
		if f.Content != "" {
			fmt.Fprintf(&b, "- Content Preview: %s\n", truncateRunes(f.Content, filePreviewRunes))
		}
	}

	if len(in.Evidence) > 0 {
		b.WriteString("\nDetected Conditions: ")
		b.WriteString(strings.Join(in.Conditions, ", "))
		b.WriteString("\n\nResearch Evidence:\n")
		for i, ev := range in.Evidence {
			fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, ev.Citation, ev.Excerpt)
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(strings.TrimSpace(in.Question))
	return b.String()
}

// PatientSummary 渲染患者概况与化验结果。
func PatientSummary(r *clinical.PatientRecord) string {
	var b strings.Builder
	b.WriteString("Patient Profile:\n")
	fmt.Fprintf(&b, "- Name: %s\n", r.Name())
	fmt.Fprintf(&b, "- ID: %s\n", r.ID)
	fmt.Fprintf(&b, "- Age Group: %s\n", r.AgeGroup)
	fmt.Fprintf(&b, "- Gender: %s\n", r.Gender)
	fmt.Fprintf(&b, "- Department: %s\n", r.Department)
	fmt.Fprintf(&b, "- Length of Stay: %d days\n", r.LengthOfStay)
	fmt.Fprintf(&b, "- Risk Level: %s\n", r.RiskLevel)

	b.WriteString("\nLaboratory Results & Vitals:\n")
	for _, res := range clinical.LabPanel(r).Results {
		if res.Value == nil {
			fmt.Fprintf(&b, "- %s: not available\n", res.Label)
			continue
		}
		fmt.Fprintf(&b, "- %s: %s %s (normal: %s)\n", res.Label, res.Display, res.Unit, res.Range)
	}
	return b.String()
}

// CleanAnswer 去掉模型自行附加的参考文献段并去除首尾空白。
func CleanAnswer(raw string) string {
	if i := strings.Index(raw, "References:"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
