package retrieval

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/askweb/internal/domain"
)

// DefaultMaxContextChars bounds the context block handed to the model.
const DefaultMaxContextChars = 6000

const docSeparator = "\n\n"

// SynthesisPrompt is the input of the answer model.
type SynthesisPrompt struct {
	Question string
	Context  string
}

// Render produces the prompt text: question, context, then the answering rules.
func (p SynthesisPrompt) Render() string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(p.Question)
	b.WriteString("\n\nContext:\n")
	b.WriteString(p.Context)
	b.WriteString("\n\nAnswer the question using only the context above. ")
	b.WriteString("If the context does not contain the answer, say that you don't know. ")
	b.WriteString("When the question asks for a website address, quote the link exactly as it appears in the context.")
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// Synthesizer turns a retrieved set and a question into one grounded answer.
type Synthesizer struct {
	llm      Completer
	maxChars int
}

// NewSynthesizer creates a synthesizer. maxChars <= 0 selects DefaultMaxContextChars.
func NewSynthesizer(llm Completer, maxChars int) *Synthesizer {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	return &Synthesizer{llm: llm, maxChars: maxChars}
}

// Synthesize answers question from set. An empty set yields domain.FallbackAnswer
// without calling the model.
func (s *Synthesizer) Synthesize(ctx context.Context, set domain.RetrievedSet, question string) (string, error) {
	if len(set) == 0 {
		return domain.FallbackAnswer, nil
	}

	prompt := SynthesisPrompt{
		Question: question,
		Context:  buildContext(set, s.maxChars),
	}

	res, err := s.llm.Complete(ctx, prompt.Render())
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", domain.AsExternal("llm", err))
	}
	return res.Text, nil
}

// buildContext joins documents in rank order while they fit in maxChars runes.
// The top document is truncated when it alone exceeds the budget.
func buildContext(set domain.RetrievedSet, maxChars int) string {
	var b strings.Builder
	used := 0
	for i, sc := range set {
		content := sc.Document.Content
		n := utf8.RuneCountInString(content)
		sep := 0
		if i > 0 {
			sep = utf8.RuneCountInString(docSeparator)
		}

		if used+sep+n > maxChars {
			if i == 0 {
				b.WriteString(truncateRunes(content, maxChars))
			}
			break
		}
		if i > 0 {
			b.WriteString(docSeparator)
		}
		b.WriteString(content)
		used += sep + n
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
