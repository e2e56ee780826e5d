package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/PDFChat/internal/api"
	"github.com/akolanti/PDFChat/internal/data/chatArchive"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
)

func ToInitJobResponse(job jobModel.Job) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		StatusURL: fmt.Sprintf("status/%s", job.Id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:              string(job.Status),
		StatusMessage:       job.StatusMessage,
		Step:                string(job.CurrentStep),
		PageCount:           job.JobPayload.PageCount,
		RAGExternalResponse: ToRAGExternalStatus(job.JobPayload),
	}

	return api.JobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		JobType:   string(job.JobType),
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	sources := make([]map[string]any, len(ragData.Sources))
	for i, s := range ragData.Sources {
		sources[i] = s
	}
	return &api.RAGResponse{
		Question: ragData.Question,
		Answer:   ragData.Answer,
		Sources:  sources,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		ChatId:    "",
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}

func ToAPIMessages(history []commonModels.ChatMessage) []api.ChatMessage {
	out := make([]api.ChatMessage, len(history))
	for i, m := range history {
		out[i] = api.ChatMessage{Role: string(m.Role), Statement: m.Statement}
	}
	return out
}

// FromAPIMessages maps incoming messages, rejecting unknown roles.
func FromAPIMessages(messages []api.ChatMessage) ([]commonModels.ChatMessage, error) {
	out := make([]commonModels.ChatMessage, len(messages))
	for i, m := range messages {
		role := commonModels.ChatRole(m.Role)
		if role != commonModels.RoleHuman && role != commonModels.RoleAI {
			return nil, fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
		out[i] = commonModels.ChatMessage{Role: role, Statement: m.Statement}
	}
	return out, nil
}

func ToFileInfos(files []commonModels.UploadedFile) []api.FileInfo {
	out := make([]api.FileInfo, len(files))
	for i, f := range files {
		out[i] = api.FileInfo{Name: f.Name, Size: f.Size, Pages: f.Pages, UploadedAt: f.UploadedAt}
	}
	return out
}

func ToSavedChats(files []chatArchive.ChatFile) []api.SavedChat {
	out := make([]api.SavedChat, len(files))
	for i, f := range files {
		out[i] = api.SavedChat{Name: f.Name, Size: f.Size, ModTime: f.ModTime}
	}
	return out
}
