package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/job"
)

// MockExecutor tracks executed jobs
type MockExecutor struct {
	ProcessedCount int32
	OnExecute      func(ctx context.Context, j jobModel.Job) jobModel.Job
}

func (m *MockExecutor) Execute(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnExecute != nil {
		return m.OnExecute(ctx, j)
	}
	return j
}

type MockJobStore struct {
	mu        sync.Mutex
	saved     []jobModel.Job
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Id == jobId {
			return m.saved[i], true
		}
	}
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	m.mu.Lock()
	m.saved = append(m.saved, j)
	m.mu.Unlock()
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

func (m *MockJobStore) statuses(id string) []jobModel.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []jobModel.JobStatus
	for _, j := range m.saved {
		if j.Id == id {
			out = append(out, j.Status)
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerPool_Flow(t *testing.T) {
	jobStore := &MockJobStore{}
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          jobStore,
	}
	executor := &MockExecutor{
		OnExecute: func(ctx context.Context, j jobModel.Job) jobModel.Job {
			if j.Id == "failing" {
				j.Status = jobModel.JobStatusError
				j.Error = jobModel.JobError{Code: 500, Message: "boom"}
			}
			return j
		},
	}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	atomic.StoreInt64(&currentWorkerCount, 0)
	InitServices(jobSvc, executor)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true
		waitFor(t, func() bool { return atomic.LoadInt64(&currentWorkerCount) >= 2 })
	})

	t.Run("Worker processes a job", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "test-1", JobType: jobModel.JobTypeChat}
		waitFor(t, func() bool { return len(jobStore.statuses("test-1")) == 2 })

		got := jobStore.statuses("test-1")
		if got[0] != jobModel.JobStatusRunning || got[1] != jobModel.JobStatusComplete {
			t.Errorf("statuses got %v", got)
		}
		final, _ := jobStore.GetJob(context.Background(), "test-1")
		if final.EndTime.IsZero() {
			t.Error("EndTime not set")
		}
	})

	t.Run("Failed job keeps error status", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "failing", JobType: jobModel.JobTypeIngest}
		waitFor(t, func() bool { return len(jobStore.statuses("failing")) == 2 })

		if got := jobStore.statuses("failing"); got[1] != jobModel.JobStatusError {
			t.Errorf("final status got %s, want %s", got[1], jobModel.JobStatusError)
		}
		if processed := atomic.LoadInt32(&executor.ProcessedCount); processed != 2 {
			t.Errorf("Expected 2 jobs processed, got %d", processed)
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
		if count := atomic.LoadInt64(&currentWorkerCount); count != 0 {
			t.Errorf("worker count after stop got %d", count)
		}
	})
}

func TestWorker_IdleTimeout(t *testing.T) {
	oldMin, oldIdle := atomic.LoadInt64(&minWorkerCount), idleWorkerTimeout
	defer func() {
		atomic.StoreInt64(&minWorkerCount, oldMin)
		idleWorkerTimeout = oldIdle
	}()

	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 1)
	idleWorkerTimeout = 20 * time.Millisecond

	InitServices(&job.Service{JobChannel: make(chan jobModel.Job)}, &MockExecutor{})
	wg := &sync.WaitGroup{}
	workerWaitGroup = wg
	stopChan := make(chan bool)
	stopWorkerChannel = stopChan

	createWorker()
	createWorker()
	createWorker()

	waitFor(t, func() bool { return atomic.LoadInt64(&currentWorkerCount) == 1 })

	time.Sleep(5 * idleWorkerTimeout)
	if count := atomic.LoadInt64(&currentWorkerCount); count != 1 {
		t.Errorf("pool went under its minimum, count is %d", count)
	}

	close(stopChan)
	wg.Wait()
}

func TestTryRetire(t *testing.T) {
	oldMin := atomic.LoadInt64(&minWorkerCount)
	defer atomic.StoreInt64(&minWorkerCount, oldMin)
	atomic.StoreInt64(&minWorkerCount, 1)

	tests := []struct {
		count     int64
		want      bool
		wantAfter int64
	}{
		{count: 3, want: true, wantAfter: 2},
		{count: 1, want: false, wantAfter: 1},
		{count: 0, want: false, wantAfter: 0},
	}
	for _, tt := range tests {
		atomic.StoreInt64(&currentWorkerCount, tt.count)
		if got := tryRetire(); got != tt.want {
			t.Errorf("tryRetire with %d workers = %v; want %v", tt.count, got, tt.want)
		}
		if after := atomic.LoadInt64(&currentWorkerCount); after != tt.wantAfter {
			t.Errorf("count after = %d; want %d", after, tt.wantAfter)
		}
	}
	atomic.StoreInt64(&currentWorkerCount, 0)
}
