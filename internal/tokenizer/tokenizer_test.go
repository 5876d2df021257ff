package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bookrec/internal/domain"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases and splits", "A Spaceship flies to Mars.", []string{"spaceship", "flies", "to", "mars"}},
		{"drops single letters", "a b cd", []string{"cd"}},
		{"drops digits", "Room 101 was 3rd", []string{"room", "was", "rd"}},
		{"strips accents", "Café Déjà Vu", []string{"cafe", "deja", "vu"}},
		{"drops long tokens", "supercalifragilistic word", []string{"word"}},
		{"keeps fifteen runes", "abcdefghijklmno", []string{"abcdefghijklmno"}},
		{"newlines and punctuation", "one\ntwo--three;four", []string{"one", "two", "three", "four"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestTagAllKeepsOrderAndIDs(t *testing.T) {
	docs := []domain.Document{
		{ID: "b1", Summary: "A chef bakes a cake"},
		{ID: "b2", Summary: ""},
	}
	tagged := TagAll(docs)
	assert.Equal(t, []domain.TaggedDocument{
		{Tokens: []string{"chef", "bakes", "cake"}, Tag: "b1"},
		{Tokens: nil, Tag: "b2"},
	}, tagged)
	// input untouched
	assert.Equal(t, "A chef bakes a cake", docs[0].Summary)
}
