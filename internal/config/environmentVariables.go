package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD                         = false
	LOG_LEVEL_PROD                  = slog.LevelInfo
	FALLBACK_REDIS_TO_INTERNALSTORE = true //if redis init fails, it falls back to an internal in-memory store
	FALLBACK_QDRANT_TO_MEMORY       = true
	TRACE_ID_KEY                    = "traceId"
	RATE_LIMIT_PER_SECOND           = 2
	BURST_RATE_LIMIT_PER_SECOND     = 5

	//pipeline heuristic
	LongDocumentThreshold = 1000
	LongDocChunkSize      = 500
	LongDocChunkOverlap   = 50
	ShortDocChunkSize     = 300
	ShortDocChunkOverlap  = 20
	RetrieverTopK         = 2
	SummarySentenceCount  = 3
	EmbeddingBatchSize    = 100
	ChatMemoryWindow      = 10

	//collections are per session and per build
	CollectionPrefix = "pdfchat"

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	IngestJobTimeout = 10 * time.Minute
	ChatJobTimeout   = 2 * time.Minute
	RefreshTimeout   = 15 * time.Minute
	PageExtractLimit = 10 * time.Second

	//serverTimeouts
	ReadTimeout            = 30 * time.Second
	WriteTimeout           = 30 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//uploads
	MaxUploadSize    = 64 << 20 //64mb
	UploadFormField  = "documents"
	TemporaryDataDir = "temporary_data"

	//chat persistence
	ChatsDir   = "./chats"
	ArchiveDir = "./chats_archive"

	//refresh
	RefreshCronSpec = "0 0 * * *" //every day at midnight

	//vectorDB
	QdrantHost     = "localhost"
	QdrantGrpcPort = 6334
	QdrantUseTLS   = false
	QdrantPoolSize = 1 //2-5 is preferred for prod according to documentation

	//providers: ollama | gemini | openai
	DefaultProvider = "ollama"

	OllamaBaseURL        = "http://localhost:11434"
	OllamaEmbeddingModel = "nomic-embed-text"
	OllamaLLMModel       = "phi"

	GeminiModelName      = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel = "gemini-embedding-001"

	EmbeddingOutputDimensionality int32 = 768

	OpenAIModelName      = "gpt-4o-mini"
	OpenAIEmbeddingModel = "text-embedding-3-small"

	ModelTemperature float32 = 0
	ModelContext             = "You are a helpful assistant answering questions about the user's PDF documents. Use the provided context. If the context does not contain the answer, say you don't know."

	LLMTimeout       = 120 * time.Second
	EmbeddingTimeout = 30 * time.Second

	//shared transport for the http based providers
	MaxIdleConns        = 100
	MaxIdleConnsPerHost = 10
	IdleConnTimeout     = 90 * time.Second

	EmbeddingRetryDelay = 5 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore     = 0
	RedisMessageStore = 1

	//redis timeouts
	RedisJobStoreTTL     = 24 * time.Hour
	RedisMessageStoreTTL = 24 * time.Hour
)

// UI status strings surfaced through job status.
const (
	StatusIndexing       = "Creating Index from the PDFs..."
	StatusIndexDone      = "Done creating Index from the PDFs."
	StatusIndexError     = "Error while creating index"
	StatusThinking       = "Thinking..."
	StatusGotResponse    = "Got response from AI."
	StatusNoResponse     = "No response from AI."
	StatusResponseError  = "Error generating response."
	StatusEngineRunning  = "Chat engine is running."
	StatusEngineNotReady = "Chat engine is not initialized."
)
