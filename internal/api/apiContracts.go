package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ChatId    string            `json:"chat_id" example:"chat_550"`
	JobType   string            `json:"job_type,omitempty" example:"Chat"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question string           `json:"question"`
	Answer   string           `json:"answer"`
	Sources  []map[string]any `json:"sources"`
}

type Result struct {
	Status              string       `json:"status"`
	StatusMessage       string       `json:"status_message,omitempty" example:"Thinking..."`
	Step                string       `json:"step,omitempty" example:"Retrieve"`
	PageCount           int          `json:"page_count,omitempty"`
	RAGExternalResponse *RAGResponse `json:"rag_response,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	ChatId    string `json:"chat_id,omitempty"`
	StatusURL string `json:"status_url"`
}

type UploadResponse struct {
	InitJobResponse
	Files []FileInfo `json:"files"`
}

type SessionResponse struct {
	ChatId string `json:"chat_id" example:"chat_550"`
}

type EngineStatusResponse struct {
	ChatId      string     `json:"chat_id"`
	Status      string     `json:"status" example:"Chat engine is running."`
	NextRefresh *time.Time `json:"next_refresh,omitempty"`
}

type ChatMessage struct {
	Role      string `json:"role" example:"human"`
	Statement string `json:"statement" example:"What is on page 2?"`
}

type MessagesResponse struct {
	ChatId   string        `json:"chat_id"`
	Messages []ChatMessage `json:"messages"`
}

type FileInfo struct {
	Name       string    `json:"name" example:"report.pdf"`
	Size       int64     `json:"size"`
	Pages      int       `json:"pages"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type FilesResponse struct {
	ChatId string     `json:"chat_id"`
	Files  []FileInfo `json:"files"`
}

type SavedChat struct {
	Name    string    `json:"name" example:"chat-2024-05-01T10-00-00-000Z.json"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

type ChatListResponse struct {
	Chats []SavedChat `json:"chats"`
}

type SavedChatResponse struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type ArchiveResponse struct {
	Archived []string `json:"archived"`
}

// requests---------------------

type ChatRequest struct {
	Message string `json:"message" validate:"required" `
	ChatID  string `json:"chatID" validate:"required"`
}

// SaveChatRequest carries either the messages to persist or the session whose memory to persist.
type SaveChatRequest struct {
	Messages []ChatMessage `json:"messages,omitempty"`
	ChatID   string        `json:"chat_id,omitempty"`
}
