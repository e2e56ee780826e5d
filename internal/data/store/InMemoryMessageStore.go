package store

import (
	"context"
	"sync"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
)

type InMemoryMessageStore struct {
	chatLock *sync.RWMutex
	chatMap  map[string][]commonModels.ChatMessage
}

func InitMessageStore() *InMemoryMessageStore {
	return &InMemoryMessageStore{
		chatLock: new(sync.RWMutex),
		chatMap:  make(map[string][]commonModels.ChatMessage),
	}
}

func (store *InMemoryMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	_, ok := store.chatMap[chatId]
	return ok
}

func (store *InMemoryMessageStore) InitNewChat(ctx context.Context, id string) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[id] = make([]commonModels.ChatMessage, 0)
	return nil
}

func (store *InMemoryMessageStore) AppendMessages(ctx context.Context, id string, messages ...commonModels.ChatMessage) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	history, ok := store.chatMap[id]
	if !ok {
		return ErrUnknownChat
	}
	store.chatMap[id] = append(history, messages...)
	return nil
}

func (store *InMemoryMessageStore) GetMessageHistory(ctx context.Context, chatId string, limit int) ([]commonModels.ChatMessage, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	history := store.chatMap[chatId]
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]commonModels.ChatMessage, len(history))
	copy(out, history)
	return out, nil
}

func (store *InMemoryMessageStore) DeleteChat(ctx context.Context, id string) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	delete(store.chatMap, id)
	return nil
}
