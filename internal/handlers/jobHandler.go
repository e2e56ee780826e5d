package handlers

import (
	"context"
	"net/http"
	"os"

	"github.com/akolanti/PDFChat/internal/adapter/utils"
	"github.com/akolanti/PDFChat/internal/api"
	"github.com/akolanti/PDFChat/internal/data/chatArchive"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/job"
	"github.com/akolanti/PDFChat/internal/session"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	logJH           = logger_i.NewLogger("JobHandler")
	logRH           = logger_i.NewLogger("RequestHandler")
)

type JobHandler struct {
	service   *job.Service
	sessions  *session.Manager
	archive   *chatArchive.Archive
	uploadDir string
}

type Dependencies struct {
	Jobs     *job.Service
	Sessions *session.Manager
	Archive  *chatArchive.Archive
	// UploadDir defaults to temporary_data under the working directory.
	UploadDir string
}

func InitJobHandler(deps Dependencies) {
	handlerInstance = &JobHandler{
		service:   deps.Jobs,
		sessions:  deps.Sessions,
		archive:   deps.Archive,
		uploadDir: deps.UploadDir,
	}
	logJH.Info("Starting job handler")
}

// CreateNewJob stamps ids and the trace, then queues the job.
func CreateNewJob(ctx context.Context, newJob jobModel.Job) jobModel.Job {
	newJob.Id = utils.GetNewUUID()
	newJob.TraceId = traceID(ctx)
	logJH.WithTrace(ctx).Info("To create new job", "jobId", newJob.Id, "jobType", newJob.JobType)
	return handlerInstance.service.Enqueue(ctx, newJob)
}

func GetJobStatus(ctx context.Context, id string) (result jobModel.Job, isFound bool) {
	if handlerInstance == nil {
		return result, false
	}
	return handlerInstance.service.GetJob(ctx, id)
}

// ValidateChatRequest returns the http status to reject with, 0 when the request is fine.
func ValidateChatRequest(chatReq api.ChatRequest) (int, string) {
	logJH.Debug("Validating chat id", "chatId", chatReq.ChatID)
	if chatReq.Message == "" || chatReq.ChatID == "" {
		return http.StatusBadRequest, "message and chatID are required"
	}
	if _, ok := handlerInstance.sessions.Get(chatReq.ChatID); !ok {
		return http.StatusNotFound, "Session not found"
	}
	return 0, ""
}

func getSession(id string) (*session.Session, bool) {
	if id == "" {
		return nil, false
	}
	return handlerInstance.sessions.Get(id)
}

func uploadDirectory() (string, string) {
	if handlerInstance.uploadDir == "" {
		return getTargetDirectory()
	}
	if err := os.MkdirAll(handlerInstance.uploadDir, 0750); err != nil {
		return "", "Storage Error"
	}
	return handlerInstance.uploadDir, ""
}
