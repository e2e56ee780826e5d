package ingest

import (
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/PDFChat/internal/adapter/utils"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
)

// ordered from best to worst for semantic meaning
var separators = []string{"\n\n", "\n", ". ", " "}

// splitTextIntoChunks splits text into pieces of at most limit characters. Consecutive
// pieces share up to overlap trailing characters of the previous one.
func splitTextIntoChunks(text string, limit int, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if limit <= 0 {
		return []string{text}
	}
	if overlap < 0 || overlap >= limit {
		overlap = 0
	}
	return split(text, limit, overlap, separators)
}

func split(text string, limit, overlap int, seps []string) []string {
	if utf8.RuneCountInString(text) <= limit {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	splitChar, rest := "", []string(nil)
	for i, s := range seps {
		if strings.Contains(text, s) {
			splitChar, rest = s, seps[i+1:]
			break
		}
	}
	if splitChar == "" {
		return hardCut(text, limit, overlap)
	}

	sepLen := utf8.RuneCountInString(splitChar)
	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, part := range strings.Split(text, splitChar) {
		partLen := utf8.RuneCountInString(part)
		if partLen == 0 {
			continue
		}

		if partLen > limit {
			if currentLen > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
				currentLen = 0
			}
			chunks = append(chunks, split(part, limit, overlap, rest)...)
			continue
		}

		if currentLen > 0 && currentLen+sepLen+partLen > limit {
			chunks = append(chunks, current.String())

			// start the next chunk with the end of the previous one
			tail := lastRunes(current.String(), overlap)
			current.Reset()
			currentLen = 0
			if tail != "" && utf8.RuneCountInString(tail)+sepLen+partLen <= limit {
				current.WriteString(tail)
				currentLen = utf8.RuneCountInString(tail)
			}
		}

		if currentLen > 0 {
			current.WriteString(splitChar)
			currentLen += sepLen
		}
		current.WriteString(part)
		currentLen += partLen
	}

	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func hardCut(text string, limit, overlap int) []string {
	runes := []rune(text)
	step := limit - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+limit, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return ""
	}
	return string(runes[len(runes)-n:])
}

// PrepareChunks splits every document with params. Chunk metadata is the document metadata
// plus the chunk position inside its document; Order runs across the whole batch.
func PrepareChunks(docs []commonModels.Document, params commonModels.IndexParams) []commonModels.DocChunk {
	var allChunks []commonModels.DocChunk
	order := 0

	for _, doc := range docs {
		for i, text := range splitTextIntoChunks(doc.Text, params.ChunkSize, params.ChunkOverlap) {
			meta := maps.Clone(doc.Metadata)
			if meta == nil {
				meta = map[string]any{}
			}
			meta[commonModels.MetaChunkOrder] = i

			allChunks = append(allChunks, commonModels.DocChunk{
				ChunkId:  utils.GetNewUUID(),
				Text:     text,
				Order:    order,
				Metadata: meta,
			})
			order++
		}
	}
	return allChunks
}
