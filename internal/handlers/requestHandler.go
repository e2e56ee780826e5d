package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/PDFChat/internal/adapter"
	"github.com/akolanti/PDFChat/internal/adapter/utils"
	"github.com/akolanti/PDFChat/internal/api"
	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/rag/ingest"
	"github.com/gabriel-vasile/mimetype"
)

const pdfMimeType = "application/pdf"

var errNotPDF = errors.New("only PDF files are accepted")

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ChatHandler godoc
// @Summary      Ask a question about a session's PDFs
// @Description  Queues a chat job against the session's chat engine and returns a job ID to track status.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest      true  "Message and session ID"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data"
// @Failure      404      {object}  api.JobResponse      "Unknown session"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid Context by request", "remoteAddr", request.RemoteAddr)
		return
	}

	var requestData api.ChatRequest
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the Chat handler reader", "error", err)
		}
	}(request.Body)

	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil {
		logRH.WithTrace(request.Context()).Warn("Bad Chat Request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return
	}
	if code, reason := ValidateChatRequest(requestData); code != 0 {
		logRH.WithTrace(request.Context()).Warn("Rejected Chat Request", "chatId", requestData.ChatID, "reason", reason)
		WriteErrorResponse(w, code, requestData.ChatID, reason)
		return
	}

	newJob := CreateNewJob(request.Context(), jobModel.Job{
		ChatId:        requestData.ChatID,
		JobType:       jobModel.JobTypeChat,
		CurrentStep:   jobModel.ChatInit,
		StatusMessage: config.StatusThinking,
		JobPayload:    jobModel.JobPayload{Question: requestData.Message},
	})
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a chat or ingest job, including the UI status string.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	logRH.WithTrace(r.Context()).Debug("Get Status Request", "path", r.URL.Path)

	result, isFound := GetJobStatus(r.Context(), idString)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostDocumentsHandler godoc
// @Summary      Upload PDFs into a session
// @Description  Receives one or more PDF files via multipart/form-data and queues a job that rebuilds the session's index from them. The session is created if it does not exist.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        id         path      string  true  "Session ID"
// @Param        documents  formData  file    true  "PDF files"
// @Success      202  {object}  api.UploadResponse "Accepted"
// @Failure      400  {object}  api.JobResponse "Missing files or bad request"
// @Failure      413  {object}  api.JobResponse "Upload too large"
// @Failure      415  {object}  api.JobResponse "Not a PDF"
// @Failure      500  {object}  api.JobResponse "Storage error"
// @Router       /sessions/{id}/documents [post]
func PostDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	log := logRH.WithTrace(r.Context())
	sessionID := utils.GetChiURLParam(r, "id")

	targetDir, errString := uploadDirectory()
	if errString != "" {
		log.Error("Couldn't get target directory", "error", errString)
		WriteErrorResponse(w, http.StatusInternalServerError, sessionID, errString)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorResponse(w, http.StatusRequestEntityTooLarge, sessionID, "Upload too large")
			return
		}
		WriteErrorResponse(w, http.StatusBadRequest, sessionID, "Bad multipart request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[config.UploadFormField]
	if len(headers) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, sessionID, config.UploadFormField+" is required")
		return
	}

	var (
		ingestFiles []jobModel.IngestFile
		uploads     []commonModels.UploadedFile
	)
	cleanup := func() {
		for _, f := range ingestFiles {
			_ = os.Remove(f.Path)
		}
	}

	for _, header := range headers {
		upload, path, err := storeUpload(header, targetDir)
		if err != nil {
			cleanup()
			log.Warn("Rejected upload", "file", header.Filename, "error", err)
			if errors.Is(err, errNotPDF) {
				WriteErrorResponse(w, http.StatusUnsupportedMediaType, sessionID, fmt.Sprintf("%s: %s", header.Filename, err))
				return
			}
			WriteErrorResponse(w, http.StatusInternalServerError, sessionID, "Storage error")
			return
		}
		ingestFiles = append(ingestFiles, jobModel.IngestFile{Name: upload.Name, Path: path})
		uploads = append(uploads, upload)
	}

	s := handlerInstance.sessions.GetOrCreate(sessionID)
	s.AddFiles(uploads...)

	newJob := CreateNewJob(r.Context(), jobModel.Job{
		ChatId:        s.ID,
		JobType:       jobModel.JobTypeIngest,
		CurrentStep:   jobModel.IngestInit,
		StatusMessage: config.StatusIndexing,
		JobPayload:    jobModel.JobPayload{IngestFiles: ingestFiles},
	})
	writeJsonResponse(w, http.StatusAccepted, api.UploadResponse{
		InitJobResponse: adapter.ToInitJobResponse(newJob),
		Files:           adapter.ToFileInfos(s.Files()),
	})
}

// storeUpload checks the upload is a PDF and parks it in dir for the ingest job.
func storeUpload(header *multipart.FileHeader, dir string) (commonModels.UploadedFile, string, error) {
	name := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return commonModels.UploadedFile{}, "", errNotPDF
	}

	fileReader, err := header.Open()
	if err != nil {
		return commonModels.UploadedFile{}, "", err
	}
	defer fileReader.Close()

	data, err := io.ReadAll(fileReader)
	if err != nil {
		return commonModels.UploadedFile{}, "", err
	}
	if !mimetype.Detect(data).Is(pdfMimeType) {
		return commonModels.UploadedFile{}, "", errNotPDF
	}

	path := filepath.Join(dir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), name))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return commonModels.UploadedFile{}, "", err
	}

	pages, err := ingest.CountPages(data)
	if err != nil {
		logRH.Debug("Could not count pages", "file", name, "error", err)
	}
	return commonModels.UploadedFile{
		Name:       name,
		Size:       int64(len(data)),
		Pages:      pages,
		UploadedAt: time.Now().UTC(),
		Data:       data,
	}, path, nil
}

// ReloadHandler godoc
// @Summary      Rebuild a session's index
// @Description  Queues a job that re-runs the document pipeline over the pages of the last successful build.
// @Tags         Ingestion
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      202  {object}  api.InitJobResponse
// @Failure      404  {object}  api.JobResponse "Unknown session"
// @Router       /sessions/{id}/reload [post]
func ReloadHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	sessionID := utils.GetChiURLParam(r, "id")
	if _, ok := getSession(sessionID); !ok {
		WriteErrorResponse(w, http.StatusNotFound, sessionID, "Session not found")
		return
	}
	newJob := CreateNewJob(r.Context(), jobModel.Job{
		ChatId:        sessionID,
		JobType:       jobModel.JobTypeReload,
		CurrentStep:   jobModel.IngestInit,
		StatusMessage: config.StatusIndexing,
	})
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob))
}
