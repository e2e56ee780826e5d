package rag

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/rag/llm"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var ErrEmptyResponse = errors.New("no response from the chat model")

// ContextChatEngine answers with the retrieved chunks as context and the
// last window messages of its memory as history.
type ContextChatEngine struct {
	retriever *Retriever
	llm       llm.Provider
	memory    jobModel.MessageStore
	chatID    string
	window    int
	system    string
	logger    *logger_i.Logger
}

func (e *ContextChatEngine) ChatID() string { return e.chatID }

func (e *ContextChatEngine) Chat(ctx context.Context, query string) (commonModels.ChatResult, error) {
	log := e.logger.WithTrace(ctx)

	hits, err := e.retriever.Retrieve(ctx, query)
	if err != nil {
		return commonModels.ChatResult{}, fmt.Errorf("retrieve: %w", err)
	}

	history, err := e.memory.GetMessageHistory(ctx, e.chatID, e.window)
	if err != nil {
		return commonModels.ChatResult{}, fmt.Errorf("chat memory: %w", err)
	}

	contextTexts := make([]string, 0, len(hits))
	sources := make([]commonModels.SourceMetadata, 0, len(hits))
	for _, h := range hits {
		contextTexts = append(contextTexts, h.Chunk.Text)
		sources = append(sources, commonModels.SourceMetadata(maps.Clone(h.Chunk.Metadata)))
	}
	log.Debug("Retrieved context", "hits", len(hits), "history", len(history))

	answer, err := timedValue("llm_generation", func() (string, error) {
		return e.llm.Generate(ctx, llm.Request{
			System:  e.system,
			Context: contextTexts,
			History: history,
			Query:   query,
		})
	})
	if err != nil {
		return commonModels.ChatResult{}, fmt.Errorf("generate: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return commonModels.ChatResult{}, ErrEmptyResponse
	}

	if err := e.remember(ctx, query, answer); err != nil {
		log.Error("Could not store chat turn", "error", err)
	}

	return commonModels.ChatResult{Response: answer, Metadata: sources}, nil
}

// remember appends the turn, reopening the memory when the store has expired it.
func (e *ContextChatEngine) remember(ctx context.Context, query, answer string) error {
	turn := []commonModels.ChatMessage{
		{Role: commonModels.RoleHuman, Statement: query},
		{Role: commonModels.RoleAI, Statement: answer},
	}
	err := e.memory.AppendMessages(ctx, e.chatID, turn...)
	if !errors.Is(err, jobModel.ErrUnknownChat) {
		return err
	}
	e.logger.WithTrace(ctx).Warn("Chat memory expired, starting a new one")
	if err := e.memory.InitNewChat(ctx, e.chatID); err != nil {
		return err
	}
	return e.memory.AppendMessages(ctx, e.chatID, turn...)
}

// Reset clears the engine's memory.
func (e *ContextChatEngine) Reset(ctx context.Context) error {
	return e.memory.InitNewChat(ctx, e.chatID)
}

// History returns the whole memory, oldest first.
func (e *ContextChatEngine) History(ctx context.Context) ([]commonModels.ChatMessage, error) {
	return e.memory.GetMessageHistory(ctx, e.chatID, 0)
}

// Close removes the engine's memory from the store.
func (e *ContextChatEngine) Close(ctx context.Context) error {
	return e.memory.DeleteChat(ctx, e.chatID)
}
