package commonModels

import "time"

// metadata keys set by extraction and preprocessing
const (
	MetaSource     = "source"
	MetaPageNumber = "pageNumber"
	MetaTotalPages = "totalPages"
	MetaWordCount  = "wordCount"
	MetaChunkOrder = "chunkOrder"
)

// RawPage is one page as produced by the PDF extractor.
type RawPage struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

// Document is a normalized page ready for indexing. Not modified after preprocessing.
type Document struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

type IndexParams struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
}

type DocChunk struct {
	ChunkId  string         `json:"chunk_id"`
	Text     string         `json:"content"`
	Order    int            `json:"chunk_order"`
	Metadata map[string]any `json:"metadata"`
}

type SearchHit struct {
	Chunk DocChunk `json:"chunk"`
	Score float32  `json:"score"`
}

type ChatRole string

const (
	RoleHuman ChatRole = "human"
	RoleAI    ChatRole = "ai"
)

type ChatMessage struct {
	Role      ChatRole `json:"role"`
	Statement string   `json:"statement"`
}

// SourceMetadata is the metadata of one chunk used to ground an answer.
type SourceMetadata map[string]any

type ChatResult struct {
	Response string           `json:"response"`
	Metadata []SourceMetadata `json:"metadata"`
}

// UploadedFile keeps the raw bytes of an upload for inline preview only.
type UploadedFile struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Pages      int       `json:"pages"`
	UploadedAt time.Time `json:"uploaded_at"`
	Data       []byte    `json:"-"`
}

// PageNumber reads the page number from source metadata, 0 when absent.
func (m SourceMetadata) PageNumber() int {
	switch v := m[MetaPageNumber].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
