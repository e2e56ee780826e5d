package job

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/metrics"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	logger            *logger_i.Logger
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		logger:            logger_i.NewLogger("JobService"),
	}
}

// Enqueue records the job as queued and hands it to the worker pool.
func (s *Service) Enqueue(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := s.log().WithTrace(ctx).With("jobId", job.Id, "jobType", job.JobType)

	job.CreatedTime = time.Now()
	job.Status = jobModel.JobStatusQueued
	if err := s.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("Failed to store queued job", "error", err)
	}

	metrics.IncrementJobsInQueue()
	s.JobChannel <- job //blocking send to prevent the system from being overwhelmed
	log.Info("Created new job")

	// a new worker every RequestsPerNewWorkerCount requests, and one per ingest since
	// those hold a worker for the whole embedding run. Idle workers retire on their own.
	count := atomic.AddInt64(&s.RequestCount, 1)
	if count%config.RequestsPerNewWorkerCount == 0 || job.JobType != jobModel.JobTypeChat {
		metrics.StartDispatcherSignalCount()
		log.Debug("Signalling dispatcher", "requestCount", count)
		s.DispatcherChannel <- true
	}
	return job
}

func (s *Service) GetJob(ctx context.Context, id string) (jobModel.Job, bool) {
	if id == "" {
		return jobModel.Job{}, false
	}
	return s.JobStore.GetJob(ctx, id)
}

func (s *Service) log() *logger_i.Logger {
	if s.logger == nil {
		s.logger = logger_i.NewLogger("JobService")
	}
	return s.logger
}
