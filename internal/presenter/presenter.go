// Package presenter renders ranked recommendations as plain text.
package presenter

import (
	"fmt"
	"strings"

	"bookrec/internal/domain"
	"bookrec/internal/summarizer"
)

// Presenter formats similarity results, shortening summaries with a Summarizer.
type Presenter struct {
	summarizer   domain.Summarizer
	maxSentences int
}

// New returns a Presenter. A nil summarizer selects the frequency summarizer.
func New(s domain.Summarizer, maxSentences int) *Presenter {
	if s == nil {
		s = summarizer.NewFrequencySummarizer()
	}
	if maxSentences <= 0 {
		maxSentences = summarizer.DefaultMaxSentences
	}
	return &Presenter{summarizer: s, maxSentences: maxSentences}
}

// Present renders results with the default summarizer settings.
func Present(results []domain.SimilarityResult, showSummary bool) string {
	return New(nil, 0).Present(results, showSummary)
}

// Present renders one block per result:
//
//	<Title> by <Author>
//	Genres: <g1, g2>
//	Correlation: <score>
//	Short Summary:       (only with showSummary)
//	<summary>
//
// followed by a blank line. An empty slice renders as "".
func (p *Presenter) Present(results []domain.SimilarityResult, showSummary bool) string {
	var b strings.Builder
	for _, r := range results {
		p.writeResult(&b, r, showSummary)
	}
	return b.String()
}

// PresentOne renders a single result block without the trailing blank line.
func (p *Presenter) PresentOne(r domain.SimilarityResult, showSummary bool) string {
	var b strings.Builder
	p.writeResult(&b, r, showSummary)
	return strings.TrimSuffix(b.String(), "\n")
}

func (p *Presenter) writeResult(b *strings.Builder, r domain.SimilarityResult, showSummary bool) {
	d := r.Document
	fmt.Fprintf(b, "%s by %s\n", d.Title, d.Author)
	fmt.Fprintf(b, "Genres: %s\n", genres(d.Genres))
	fmt.Fprintf(b, "Correlation: %.2f\n", r.Score)
	if showSummary {
		b.WriteString("Short Summary:\n")
		b.WriteString(p.ShortSummary(d.Summary))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// ShortSummary returns the extractive summary of text, or text itself when summarizing fails.
func (p *Presenter) ShortSummary(text string) string {
	short, err := p.summarizer.Summarize(text, p.maxSentences)
	if err != nil || short == "" {
		return strings.TrimSpace(text)
	}
	return short
}

func genres(gs []string) string {
	if len(gs) == 0 {
		return "unknown"
	}
	return strings.Join(gs, ", ")
}
