package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	r := newRecord()
	r.Labs.Pulse = nil

	prompt := BuildPrompt(PromptInput{
		Record:   r,
		Question: "  Is she ready to go home?  ",
		Note:     "Tolerating oral diet.",
		File: &FileContext{
			Name:    "labs.csv",
			Type:    "text/csv",
			Content: strings.Repeat("x", 600),
		},
	})

	assert.Contains(t, prompt, "- Name: Ada Byron\n")
	assert.Contains(t, prompt, "- Length of Stay: 3 days\n")
	assert.Contains(t, prompt, "- Pulse: not available\n")
	assert.Contains(t, prompt, "Additional Clinical Notes:\nTolerating oral diet.\n")
	assert.Contains(t, prompt, "- Filename: labs.csv\n")
	assert.Contains(t, prompt, "- Content Preview: "+strings.Repeat("x", 500)+"...\n")
	assert.NotContains(t, prompt, strings.Repeat("x", 501))
	assert.NotContains(t, prompt, "Research Evidence")
	assert.True(t, strings.HasSuffix(prompt, "Question: Is she ready to go home?"))
}

func TestBuildPrompt_BlankNoteOmitted(t *testing.T) {
	prompt := BuildPrompt(PromptInput{Record: newRecord(), Question: "q", Note: "  \n "})
	assert.NotContains(t, prompt, "Additional Clinical Notes")
	assert.NotContains(t, prompt, "Uploaded File")
}

func TestCleanAnswer(t *testing.T) {
	assert.Equal(t, "Body text.", CleanAnswer("  Body text.\n\nReferences:\n1. foo"))
	assert.Equal(t, "No references here.", CleanAnswer("No references here.\n"))
	assert.Equal(t, "", CleanAnswer("References: only"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héllo", truncateRunes("héllo", 5))
	assert.Equal(t, "hé...", truncateRunes("héllo", 2))
}
