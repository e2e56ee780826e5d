package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem JobStore")

type storedJob struct {
	job     jobModel.Job
	savedAt time.Time
}

// InMemoryJobStore mirrors the redis job TTL so finished jobs do not pile up without redis.
type InMemoryJobStore struct {
	jobMutex sync.RWMutex
	jobs     map[string]storedJob
	ttl      time.Duration
	now      func() time.Time
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return NewInMemoryJobStore(config.RedisJobStoreTTL, time.Now)
}

func NewInMemoryJobStore(ttl time.Duration, now func() time.Time) *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs: make(map[string]storedJob),
		ttl:  ttl,
		now:  now,
	}
}

func (store *InMemoryJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()

	now := store.now()
	store.jobs[job.Id] = storedJob{job: job, savedAt: now}
	store.evictExpired(now)
	inMemLogger.Debug("Saved job to store", "jobId", job.Id, "status", job.Status)
	return nil
}

func (store *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	store.jobMutex.RLock()
	defer store.jobMutex.RUnlock()
	entry, found := store.jobs[jobId]
	if !found || store.expired(entry, store.now()) {
		return jobModel.Job{}, false
	}
	return entry.job, true
}

func (store *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	delete(store.jobs, jobID)
}

func (store *InMemoryJobStore) expired(entry storedJob, now time.Time) bool {
	return store.ttl > 0 && now.Sub(entry.savedAt) > store.ttl
}

// evictExpired must be called with the write lock held.
func (store *InMemoryJobStore) evictExpired(now time.Time) {
	for id, entry := range store.jobs {
		if store.expired(entry, now) {
			delete(store.jobs, id)
		}
	}
}
