package ingest

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
)

var (
	ErrNoDocuments        = errors.New("no documents to index")
	ErrDocumentValidation = errors.New("document validation failed")
)

const (
	summarySentenceSep = ". "
	summaryEllipsis    = "..."
)

// PreprocessDocuments collapses whitespace runs to a single space, trims, and records the word count.
func PreprocessDocuments(pages []commonModels.RawPage) []commonModels.Document {
	docs := make([]commonModels.Document, 0, len(pages))
	for _, p := range pages {
		words := strings.Fields(p.PageContent)
		text := strings.Join(words, " ")

		var meta map[string]any
		if p.Metadata != nil {
			meta = maps.Clone(p.Metadata)
			meta[commonModels.MetaWordCount] = len(words)
		}
		docs = append(docs, commonModels.Document{Text: text, Metadata: meta})
	}
	return docs
}

// ValidateDocuments rejects the whole batch if any document has no text or no metadata.
func ValidateDocuments(docs []commonModels.Document) error {
	if len(docs) == 0 {
		return ErrNoDocuments
	}
	for i, d := range docs {
		if d.Text == "" {
			return fmt.Errorf("%w: document %d (%v) has no text", ErrDocumentValidation, i, source(d))
		}
		if d.Metadata == nil {
			return fmt.Errorf("%w: document %d has no metadata", ErrDocumentValidation, i)
		}
	}
	return nil
}

// OptimizeIndexParameters picks chunking from the mean document length in characters.
func OptimizeIndexParameters(docs []commonModels.Document) commonModels.IndexParams {
	if len(docs) == 0 {
		return commonModels.IndexParams{ChunkSize: config.ShortDocChunkSize, ChunkOverlap: config.ShortDocChunkOverlap}
	}
	total := 0
	for _, d := range docs {
		total += utf8.RuneCountInString(d.Text)
	}
	avg := float64(total) / float64(len(docs))

	if avg > config.LongDocumentThreshold {
		return commonModels.IndexParams{ChunkSize: config.LongDocChunkSize, ChunkOverlap: config.LongDocChunkOverlap}
	}
	return commonModels.IndexParams{ChunkSize: config.ShortDocChunkSize, ChunkOverlap: config.ShortDocChunkOverlap}
}

// SummarizeDocuments returns the first few sentences of each raw page followed by an ellipsis.
// It reads the extractor output, so line breaks inside a sentence are kept.
func SummarizeDocuments(pages []commonModels.RawPage) []string {
	summaries := make([]string, 0, len(pages))
	for _, p := range pages {
		sentences := strings.Split(p.PageContent, summarySentenceSep)
		if len(sentences) > config.SummarySentenceCount {
			sentences = sentences[:config.SummarySentenceCount]
		}
		summaries = append(summaries, strings.Join(sentences, summarySentenceSep)+summaryEllipsis)
	}
	return summaries
}

func source(d commonModels.Document) any {
	if d.Metadata == nil {
		return nil
	}
	return d.Metadata[commonModels.MetaSource]
}
