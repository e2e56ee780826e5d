package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/metrics"
)

const saveTimeout = 5 * time.Second

func executeJob(job jobModel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.JobType)+"_"+string(job.Status), time.Since(start))
	}()

	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout(job.JobType))
	defer cancel()

	log := logger.WithTrace(ctx).With("jobId", job.Id, "jobType", job.JobType)
	log.Debug("Processing job")

	job.Status = jobModel.JobStatusRunning
	saveJobState(ctx, job)

	job = _executor.Execute(ctx, job)

	job.EndTime = time.Now()
	if job.Status != jobModel.JobStatusError {
		job.Status = jobModel.JobStatusComplete
	} else {
		log.Warn("Job failed", "code", job.Error.Code, "message", job.Error.Message)
	}
	saveJobState(ctx, job)
}

func jobTimeout(jobType jobModel.JobType) time.Duration {
	if jobType == jobModel.JobTypeChat {
		return config.ChatJobTimeout
	}
	return config.IngestJobTimeout
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	metrics.DecrementActiveWorkerCount()
	logger.Info("Removed worker", "reason", reason, "workerCount", atomic.LoadInt64(&currentWorkerCount))
}

// saveJobState outlives the job deadline so a timed out job still gets its final state.
func saveJobState(ctx context.Context, job jobModel.Job) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := _jobService.JobStore.SaveJob(saveCtx, job); err != nil {
		logger.WithTrace(ctx).Error("Failed to update job status", "jobId", job.Id, "error", err)
	}
}
