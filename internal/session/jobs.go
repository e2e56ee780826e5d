package session

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/rag"
	"github.com/akolanti/PDFChat/internal/rag/ingest"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

// Executor runs queued jobs against the sessions of a Manager.
type Executor struct {
	manager *Manager
	logger  *logger_i.Logger
}

func NewExecutor(manager *Manager) *Executor {
	return &Executor{manager: manager, logger: logger_i.NewLogger("Job Executor")}
}

func (e *Executor) Execute(ctx context.Context, job jobModel.Job) jobModel.Job {
	switch job.JobType {
	case jobModel.JobTypeIngest:
		return e.ingest(ctx, job)
	case jobModel.JobTypeReload:
		return e.reload(ctx, job)
	case jobModel.JobTypeChat:
		return e.chat(ctx, job)
	default:
		return jobError(job, http.StatusBadRequest, "unknown job type", false, config.StatusResponseError)
	}
}

func (e *Executor) ingest(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := e.logger.WithTrace(ctx).With("jobId", job.Id, "session", job.ChatId)
	defer removeUploads(job.JobPayload.IngestFiles, log)

	s := e.manager.GetOrCreate(job.ChatId)
	job.StatusMessage = config.StatusIndexing
	job.CurrentStep = jobModel.IngestExtracting

	var pages []commonModels.RawPage
	for _, f := range job.JobPayload.IngestFiles {
		filePages, err := ingest.ExtractPDFFile(f.Path)
		if err != nil {
			log.Error("Extraction failed", "file", f.Name, "error", err)
			return jobError(job, http.StatusUnprocessableEntity, "could not read "+f.Name, false, config.StatusIndexError)
		}
		for i := range filePages {
			filePages[i].Metadata[commonModels.MetaSource] = f.Name
		}
		pages = append(pages, filePages...)
	}

	job.CurrentStep = jobModel.IngestProcessing
	report, err := s.ProcessDocuments(ctx, pages, TriggerUpload)
	if err != nil {
		return buildError(job, err)
	}
	return buildDone(job, report)
}

func (e *Executor) reload(ctx context.Context, job jobModel.Job) jobModel.Job {
	s, ok := e.manager.Get(job.ChatId)
	if !ok {
		return jobError(job, http.StatusNotFound, ErrSessionNotFound.Error(), false, config.StatusIndexError)
	}
	job.StatusMessage = config.StatusIndexing
	job.CurrentStep = jobModel.IngestProcessing

	report, err := s.Reload(ctx, TriggerReload)
	if err != nil {
		return buildError(job, err)
	}
	return buildDone(job, report)
}

func (e *Executor) chat(ctx context.Context, job jobModel.Job) jobModel.Job {
	s, ok := e.manager.Get(job.ChatId)
	if !ok {
		return jobError(job, http.StatusNotFound, ErrSessionNotFound.Error(), false, config.StatusResponseError)
	}
	job.StatusMessage = config.StatusThinking
	job.CurrentStep = jobModel.RetrieveCall

	res, err := s.Chat(ctx, job.JobPayload.Question)
	switch {
	case errors.Is(err, ErrEngineNotInitialized):
		return jobError(job, http.StatusConflict, err.Error(), false, config.StatusResponseError)
	case errors.Is(err, rag.ErrEmptyResponse):
		return jobError(job, http.StatusBadGateway, err.Error(), true, config.StatusNoResponse)
	case err != nil:
		e.logger.WithTrace(ctx).Error("Chat failed", "jobId", job.Id, "error", err)
		return jobError(job, http.StatusInternalServerError, "Internal Server Error", true, config.StatusResponseError)
	}

	job.JobPayload.Answer = res.Response
	job.JobPayload.Sources = res.Metadata
	job.CurrentStep = jobModel.Complete
	job.StatusMessage = config.StatusGotResponse
	return job
}

func buildDone(job jobModel.Job, report *BuildReport) jobModel.Job {
	job.JobPayload.PageCount = report.Documents
	job.CurrentStep = jobModel.Complete
	job.StatusMessage = config.StatusIndexDone
	return job
}

func buildError(job jobModel.Job, err error) jobModel.Job {
	switch {
	case errors.Is(err, ingest.ErrDocumentValidation), errors.Is(err, ingest.ErrNoDocuments), errors.Is(err, ErrNothingToReload):
		return jobError(job, http.StatusUnprocessableEntity, err.Error(), false, config.StatusIndexError)
	case errors.Is(err, ErrSessionClosed):
		return jobError(job, http.StatusGone, err.Error(), false, config.StatusIndexError)
	default:
		return jobError(job, http.StatusInternalServerError, "Internal Server Error", true, config.StatusIndexError)
	}
}

func jobError(job jobModel.Job, code int, message string, retry bool, status string) jobModel.Job {
	job.Error = jobModel.JobError{Code: code, Message: message, Retry: retry}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	job.StatusMessage = status
	return job
}

func removeUploads(files []jobModel.IngestFile, log *logger_i.Logger) {
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Error("Error removing file", "path", f.Path, "error", err)
		}
	}
}
