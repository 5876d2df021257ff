// Package tokenizer turns book summaries into the token sequences embedding providers train on.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"bookrec/internal/domain"
)

const (
	// MinTokenLen is the shortest token kept, in runes.
	MinTokenLen = 2
	// MaxTokenLen is the longest token kept, in runes.
	MaxTokenLen = 15
)

// Tokenize lower-cases text, strips accents and splits it into alphabetic tokens.
// Tokens shorter than MinTokenLen or longer than MaxTokenLen are dropped.
func Tokenize(text string) []string {
	folded := strings.ToLower(deaccent(text))
	var out []string
	start := -1
	for i, r := range folded {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = appendToken(out, folded[start:i])
			start = -1
		}
	}
	if start >= 0 {
		out = appendToken(out, folded[start:])
	}
	return out
}

// Tag tokenizes a document's summary and tags it with the document ID.
func Tag(doc domain.Document) domain.TaggedDocument {
	return domain.TaggedDocument{Tokens: Tokenize(doc.Summary), Tag: doc.ID}
}

// TagAll tags every document, preserving order.
func TagAll(docs []domain.Document) []domain.TaggedDocument {
	out := make([]domain.TaggedDocument, len(docs))
	for i := range docs {
		out[i] = Tag(docs[i])
	}
	return out
}

func appendToken(out []string, tok string) []string {
	n := utf8.RuneCountInString(tok)
	if n < MinTokenLen || n > MaxTokenLen {
		return out
	}
	return append(out, tok)
}

func deaccent(text string) string {
	// transformers keep state between calls, so build one per call
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return s
}
