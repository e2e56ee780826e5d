package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/akolanti/PDFChat/internal/adapter"
	"github.com/akolanti/PDFChat/internal/adapter/utils"
	"github.com/akolanti/PDFChat/internal/api"
	"github.com/akolanti/PDFChat/internal/data/chatArchive"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
)

// SaveChatHandler godoc
// @Summary      Save a chat as JSON
// @Description  Persists the given messages, or the memory of the given session, to the chats directory.
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Param        request  body      api.SaveChatRequest  true  "Messages or session ID"
// @Success      201      {object}  api.SavedChatResponse
// @Failure      400      {object}  api.JobResponse
// @Failure      404      {object}  api.JobResponse
// @Router       /chats/save [post]
func SaveChatHandler(w http.ResponseWriter, r *http.Request) {
	persistChat(w, r, handlerInstance.archive.SaveChat)
}

// ExportChatHandler godoc
// @Summary      Export a chat as text
// @Description  Writes the transcript as "Human: " and "AI: " lines to the chats directory.
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Param        request  body      api.SaveChatRequest  true  "Messages or session ID"
// @Success      201      {object}  api.SavedChatResponse
// @Failure      400      {object}  api.JobResponse
// @Failure      404      {object}  api.JobResponse
// @Router       /chats/export [post]
func ExportChatHandler(w http.ResponseWriter, r *http.Request) {
	persistChat(w, r, handlerInstance.archive.ExportChat)
}

func persistChat(w http.ResponseWriter, r *http.Request, write func([]commonModels.ChatMessage) (string, error)) {
	if !validateContext(r.Context()) {
		return
	}
	log := logRH.WithTrace(r.Context())
	defer r.Body.Close()

	var req api.SaveChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return
	}

	var history []commonModels.ChatMessage
	switch {
	case req.ChatID != "":
		s, ok := getSession(req.ChatID)
		if !ok {
			WriteErrorResponse(w, http.StatusNotFound, req.ChatID, "Session not found")
			return
		}
		h, err := s.History(r.Context())
		if err != nil {
			log.Error("Could not read chat memory", "session", req.ChatID, "error", err)
			WriteErrorResponse(w, http.StatusInternalServerError, req.ChatID, "Internal Server Error")
			return
		}
		history = h
	case len(req.Messages) > 0:
		h, err := adapter.FromAPIMessages(req.Messages)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", err.Error())
			return
		}
		history = h
	default:
		WriteErrorResponse(w, http.StatusBadRequest, "", "messages or chat_id is required")
		return
	}

	path, err := write(history)
	if err != nil {
		log.Error("Could not persist chat", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, req.ChatID, "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusCreated, api.SavedChatResponse{Name: filepath.Base(path), Path: path})
}

// ListChatsHandler godoc
// @Summary      List saved chats
// @Tags         Chats
// @Produce      json
// @Success      200  {object}  api.ChatListResponse
// @Router       /chats [get]
func ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	files, err := handlerInstance.archive.ListChats()
	if err != nil {
		logRH.WithTrace(r.Context()).Error("Could not list chats", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.ChatListResponse{Chats: adapter.ToSavedChats(files)})
}

// GetChatHandler godoc
// @Summary      Load a saved chat
// @Description  JSON chats are returned as messages, text exports as plain text.
// @Tags         Chats
// @Produce      json,plain
// @Param        name  path  string  true  "Saved chat file name"
// @Success      200  {object}  api.MessagesResponse
// @Failure      400  {object}  api.JobResponse
// @Failure      404  {object}  api.JobResponse
// @Router       /chats/{name} [get]
func GetChatHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	name := utils.GetChiURLParam(r, "name")
	data, err := handlerInstance.archive.ReadFile(name)
	switch {
	case errors.Is(err, chatArchive.ErrInvalidName):
		WriteErrorResponse(w, http.StatusBadRequest, name, err.Error())
		return
	case errors.Is(err, chatArchive.ErrNotFound):
		WriteErrorResponse(w, http.StatusNotFound, name, err.Error())
		return
	case err != nil:
		WriteErrorResponse(w, http.StatusInternalServerError, name, "Storage error")
		return
	}

	if filepath.Ext(name) != ".json" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	history, err := handlerInstance.archive.LoadChatHistory(name)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnprocessableEntity, name, "Saved chat is not valid JSON")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.MessagesResponse{Messages: adapter.ToAPIMessages(history)})
}

// ArchiveChatsHandler godoc
// @Summary      Archive saved chats
// @Description  Moves every saved chat into the archive directory.
// @Tags         Chats
// @Produce      json
// @Success      200  {object}  api.ArchiveResponse
// @Router       /chats/archive [post]
func ArchiveChatsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	moved, err := handlerInstance.archive.ArchiveChats()
	if err != nil {
		logRH.WithTrace(r.Context()).Error("Archive failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.ArchiveResponse{Archived: moved})
}
