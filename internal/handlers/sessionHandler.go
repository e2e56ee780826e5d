package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/akolanti/PDFChat/internal/adapter"
	"github.com/akolanti/PDFChat/internal/adapter/utils"
	"github.com/akolanti/PDFChat/internal/api"
	"github.com/akolanti/PDFChat/internal/session"
)

// CreateSessionHandler godoc
// @Summary      Create a session
// @Description  Creates an empty session. Upload PDFs into it before chatting.
// @Tags         Sessions
// @Produce      json
// @Success      201  {object}  api.SessionResponse
// @Router       /sessions [post]
func CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	s := handlerInstance.sessions.Create()
	writeJsonResponse(w, http.StatusCreated, api.SessionResponse{ChatId: s.ID})
}

// DeleteSessionHandler godoc
// @Summary      Close a session's PDFs
// @Description  Cancels the scheduled refresh, deletes the chat memory, drops the index and forgets the uploaded files.
// @Tags         Sessions
// @Param        id   path  string  true  "Session ID"
// @Success      204
// @Failure      404  {object}  api.JobResponse
// @Router       /sessions/{id} [delete]
func DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	if err := handlerInstance.sessions.Close(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, id, "Session not found")
			return
		}
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Internal Server Error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetSessionHandler godoc
// @Summary      Reset the chat engine
// @Description  Clears the chat memory of the session. A session without an engine is left as is.
// @Tags         Sessions
// @Produce      json
// @Param        id   path  string  true  "Session ID"
// @Success      200  {object}  api.EngineStatusResponse
// @Failure      404  {object}  api.JobResponse
// @Router       /sessions/{id}/reset [post]
func ResetSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	s, ok := getSession(id)
	if !ok {
		WriteErrorResponse(w, http.StatusNotFound, id, "Session not found")
		return
	}
	if err := s.ResetChatEngine(r.Context()); err != nil {
		logRH.WithTrace(r.Context()).Error("Reset failed", "session", id, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Internal Server Error")
		return
	}
	writeJsonResponse(w, http.StatusOK, engineStatus(s))
}

// EngineStatusHandler godoc
// @Summary      Chat engine status
// @Tags         Sessions
// @Produce      json
// @Param        id   path  string  true  "Session ID"
// @Success      200  {object}  api.EngineStatusResponse
// @Failure      404  {object}  api.JobResponse
// @Router       /sessions/{id}/engine [get]
func EngineStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	s, ok := getSession(id)
	if !ok {
		WriteErrorResponse(w, http.StatusNotFound, id, "Session not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, engineStatus(s))
}

func engineStatus(s *session.Session) api.EngineStatusResponse {
	res := api.EngineStatusResponse{ChatId: s.ID, Status: s.EngineStatus()}
	if next, ok := handlerInstance.sessions.NextRefresh(s.ID); ok {
		res.NextRefresh = &next
	}
	return res
}

// MessagesHandler godoc
// @Summary      Chat memory
// @Description  Returns the session's chat memory, oldest first.
// @Tags         Sessions
// @Produce      json
// @Param        id   path  string  true  "Session ID"
// @Success      200  {object}  api.MessagesResponse
// @Failure      404  {object}  api.JobResponse
// @Router       /sessions/{id}/messages [get]
func MessagesHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	s, ok := getSession(id)
	if !ok {
		WriteErrorResponse(w, http.StatusNotFound, id, "Session not found")
		return
	}
	history, err := s.History(r.Context())
	if err != nil {
		logRH.WithTrace(r.Context()).Error("Could not read chat memory", "session", id, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Internal Server Error")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.MessagesResponse{ChatId: id, Messages: adapter.ToAPIMessages(history)})
}

// FilesHandler godoc
// @Summary      Uploaded files
// @Tags         Sessions
// @Produce      json
// @Param        id   path  string  true  "Session ID"
// @Success      200  {object}  api.FilesResponse
// @Failure      404  {object}  api.JobResponse
// @Router       /sessions/{id}/files [get]
func FilesHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	s, ok := getSession(id)
	if !ok {
		WriteErrorResponse(w, http.StatusNotFound, id, "Session not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.FilesResponse{ChatId: id, Files: adapter.ToFileInfos(s.Files())})
}

// FileHandler godoc
// @Summary      Preview an uploaded PDF
// @Description  Streams the uploaded bytes inline for the browser's PDF viewer.
// @Tags         Sessions
// @Produce      application/pdf
// @Param        id    path  string  true  "Session ID"
// @Param        name  path  string  true  "File name"
// @Success      200
// @Failure      404  {object}  api.JobResponse
// @Router       /sessions/{id}/files/{name} [get]
func FileHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	name := utils.GetChiURLParam(r, "name")
	s, ok := getSession(id)
	if !ok {
		WriteErrorResponse(w, http.StatusNotFound, id, "Session not found")
		return
	}
	f, ok := s.File(name)
	if !ok {
		WriteErrorResponse(w, http.StatusNotFound, id, "File not found")
		return
	}
	w.Header().Set("Content-Type", pdfMimeType)
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(f.Name))
	http.ServeContent(w, r, f.Name, f.UploadedAt, bytes.NewReader(f.Data))
}

// IndexHandler godoc
// @Summary      Export the index
// @Description  Returns the session's current index, its chunking parameters and stored chunks, as JSON.
// @Tags         Sessions
// @Produce      json
// @Param        id   path  string  true  "Session ID"
// @Success      200
// @Failure      404  {object}  api.JobResponse
// @Failure      409  {object}  api.JobResponse "No index built yet"
// @Router       /sessions/{id}/index [get]
func IndexHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	s, ok := getSession(id)
	if !ok {
		WriteErrorResponse(w, http.StatusNotFound, id, "Session not found")
		return
	}

	var buf bytes.Buffer
	if err := s.ExportIndex(r.Context(), &buf); err != nil {
		if errors.Is(err, session.ErrIndexNotInitialized) {
			WriteErrorResponse(w, http.StatusConflict, id, err.Error())
			return
		}
		logRH.WithTrace(r.Context()).Error("Index export failed", "session", id, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Internal Server Error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
