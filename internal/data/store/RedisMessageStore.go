package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/data/redisStore"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var ErrUnknownChat = jobModel.ErrUnknownChat

type RedisMessageStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisMessageStore(ctx context.Context, settings config.RedisSettings) *RedisMessageStore {
	s := redisStore.GetRedisStore(ctx, settings, config.RedisMessageStore)
	if s == nil {
		return nil
	}
	return NewRedisMessageStore(s)
}

func NewRedisMessageStore(s *redisStore.Store) *RedisMessageStore {
	return &RedisMessageStore{
		store:  s,
		logger: logger_i.NewLogger("MessageStore"),
	}
}

func openKey(id string) string     { return "chat:" + id + ":open" }
func messagesKey(id string) string { return "chat:" + id + ":messages" }

func (s *RedisMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	isFound, err := s.store.Exists(ctx, openKey(chatId))
	if err != nil {
		s.logger.WithTrace(ctx).Error("Failed to check if chatId exists", "chatId", chatId, "error", err)
		return false
	}
	return isFound
}

// InitNewChat opens an empty history, dropping anything stored under the same id.
func (s *RedisMessageStore) InitNewChat(ctx context.Context, id string) error {
	log := s.logger.WithTrace(ctx).With("chatId", id)
	log.Debug("Initializing new chat")
	if err := s.store.Del(ctx, messagesKey(id)); err != nil {
		return fmt.Errorf("reset chat %s: %w", id, err)
	}
	return s.store.Set(ctx, openKey(id), "1", config.RedisMessageStoreTTL)
}

func (s *RedisMessageStore) AppendMessages(ctx context.Context, id string, messages ...commonModels.ChatMessage) error {
	if !s.ValidateChatId(ctx, id) {
		return ErrUnknownChat
	}
	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	if err := s.store.ListPush(ctx, messagesKey(id), values...); err != nil {
		s.logger.WithTrace(ctx).Error("error saving chat", "chatId", id, "error", err)
		return err
	}
	_ = s.store.Expire(ctx, messagesKey(id), config.RedisMessageStoreTTL)
	_ = s.store.Expire(ctx, openKey(id), config.RedisMessageStoreTTL)
	return nil
}

func (s *RedisMessageStore) GetMessageHistory(ctx context.Context, chatId string, limit int) ([]commonModels.ChatMessage, error) {
	res, err := s.store.ListGetLast(ctx, messagesKey(chatId), int64(limit))
	if err != nil {
		s.logger.WithTrace(ctx).Error("Error getting history", "chatId", chatId, "error", err)
		return nil, err
	}
	history := make([]commonModels.ChatMessage, 0, len(res))
	for _, raw := range res {
		var m commonModels.ChatMessage
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		history = append(history, m)
	}
	return history, nil
}

func (s *RedisMessageStore) DeleteChat(ctx context.Context, id string) error {
	return s.store.Del(ctx, openKey(id), messagesKey(id))
}
