package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{"bare", Document{Filename: "study1.pdf"}, "study1"},
		{"placeholder authors", Document{Filename: "study1.pdf", Authors: "Unknown", Year: "2020"}, "study1 (2020)"},
		{"affiliations", Document{Filename: "a.txt", Authors: "affiliations"}, "a"},
		{"both", Document{Filename: "b.pdf", Authors: "Smith J", Year: "2019"}, "b (Smith J, 2019)"},
		{"authors only", Document{Filename: "c.pdf", Authors: "Lee", Year: "nan"}, "c (Lee)"},
		{"none year", Document{Filename: "d", Year: "None"}, "d"},
		{"dotted name", Document{Filename: "e.v2.pdf", Year: "2021"}, "e.v2 (2021)"},
		{"empty", Document{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() { Format(tt.doc) })
			assert.Equal(t, tt.want, Format(tt.doc))
			assert.Equal(t, Format(tt.doc), Format(tt.doc))
		})
	}
}

func TestDedup(t *testing.T) {
	docs := []Document{
		{Filename: "a.pdf", Title: "first"},
		{Filename: "b.pdf"},
		{Filename: "a.pdf", Title: "second"},
	}
	got := Dedup(docs, func(d Document) string { return d.Filename })
	assert.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Title)
	assert.Equal(t, "b.pdf", got[1].Filename)
}
