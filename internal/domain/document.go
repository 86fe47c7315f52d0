package domain

import "strings"

// Metadata describes where a retrieved document came from.
type Metadata struct {
	Source   string
	Keywords []string
	Link     string
}

// Document is one normalized web search hit. It is never mutated after NewDocument.
type Document struct {
	Title    string
	Content  string
	Metadata Metadata
}

// NewDocument builds a document from the raw parts of a search hit.
// Content has the form "<title>. <snippet>. Link: <link>".
func NewDocument(title, snippet, link, source string, keywords []string) Document {
	kw := make([]string, len(keywords))
	copy(kw, keywords)

	var b strings.Builder
	b.WriteString(strings.TrimSpace(title))
	b.WriteString(". ")
	b.WriteString(strings.TrimSpace(snippet))
	b.WriteString(". Link: ")
	b.WriteString(strings.TrimSpace(link))

	return Document{
		Title:   title,
		Content: b.String(),
		Metadata: Metadata{
			Source:   source,
			Keywords: kw,
			Link:     link,
		},
	}
}

// Scored pairs a document with its similarity to the query.
type Scored struct {
	Document Document
	Score    float64
}

// RetrievedSet is an ordered list of the most relevant documents, best first.
type RetrievedSet []Scored

// Documents returns the documents in rank order.
func (s RetrievedSet) Documents() []Document {
	out := make([]Document, len(s))
	for i, sc := range s {
		out[i] = sc.Document
	}
	return out
}

// FallbackAnswer is returned when retrieval finds nothing to answer from.
const FallbackAnswer = "No relevant information was found for this question."

// Answer is the pipeline output: the synthesized text and the documents it was built from.
type Answer struct {
	Text    string
	Sources RetrievedSet
}
