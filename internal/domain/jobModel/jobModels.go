package jobModel

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	ChatInit         InternalStatus = "Init"
	RetrieveCall     InternalStatus = "Retrieve"
	LLMCall          InternalStatus = "LLM"
	VectorDBCall     InternalStatus = "VectorDB"
	EmbeddingAPICall InternalStatus = "EmbeddingAPI"
	RedisCall        InternalStatus = "Redis"

	IngestInit       InternalStatus = "IngestInit"
	IngestExtracting InternalStatus = "IngestExtracting"
	IngestProcessing InternalStatus = "IngestProcessing"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeChat   JobType = "Chat"
	JobTypeIngest JobType = "Ingest"
	JobTypeReload JobType = "Reload"
)

type Job struct {
	Id            string         `json:"id"`
	ChatId        string         `json:"chat_id"`
	TraceId       string         `json:"trace_id"`
	JobType       JobType        `json:"job_type"`
	JobPayload    JobPayload     `json:"job_payload"`
	Error         JobError       `json:"error,omitempty"`
	CreatedTime   time.Time      `json:"created_time"`
	EndTime       time.Time      `json:"end_time,omitempty"`
	Status        JobStatus      `json:"status"`
	CurrentStep   InternalStatus `json:"current_step"`
	StatusMessage string         `json:"status_message"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// IngestFile points at an upload parked in the temporary data directory.
type IngestFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type JobPayload struct {
	Question string                        `json:"question,omitempty"`
	Answer   string                        `json:"answer,omitempty"`
	Sources  []commonModels.SourceMetadata `json:"sources,omitempty"`

	IngestFiles []IngestFile `json:"ingest_files,omitempty"`
	PageCount   int          `json:"page_count,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// ErrUnknownChat is returned when appending to a chat that was never opened or has expired.
var ErrUnknownChat = errors.New("unknown chat id")

// MessageStore holds the chat memory of each chat engine.
type MessageStore interface {
	ValidateChatId(ctx context.Context, id string) bool
	InitNewChat(ctx context.Context, id string) error
	AppendMessages(ctx context.Context, id string, messages ...commonModels.ChatMessage) error
	// GetMessageHistory returns the last limit messages, oldest first. limit <= 0 returns all.
	GetMessageHistory(ctx context.Context, chatId string, limit int) ([]commonModels.ChatMessage, error)
	DeleteChat(ctx context.Context, id string) error
}
