// Package queue runs background jobs (magic-link mail, order receipts,
// sitemap publishing) on a pluggable driver.
//
//	queue.Register(func() queue.Job { return &jobs.SendMagicLink{} })
//	_ = queue.Dispatch(ctx, &jobs.SendMagicLink{Email: "owner@example.com", Link: link})
//	queue.StartWorkers(ctx, 2)
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/metrics"
)

// Job is implemented by every queued job. Jobs are JSON-encoded on dispatch,
// so their exported fields are the payload.
type Job interface {
	Handle(ctx context.Context) error
}

// FailedJob records a job that exhausted its retries.
type FailedJob struct {
	Type     string
	Job      Job
	Err      error
	FailedAt time.Time
	Attempts int
}

// Driver is the queue storage backend.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is ready. (nil, nil) means "poll again".
	Pop(ctx context.Context) ([]byte, error)
}

var ErrUnregistered = errors.New("queue: job type is not registered")

// Manager owns a driver, the job registry and the failed-job log.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	maxRetry int
	backoff  func(attempt int) time.Duration
	failures FailureStore
}

// NewManager returns a Manager over d with three attempts and linear backoff.
func NewManager(d Driver) *Manager {
	return &Manager{
		driver:   d,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
	}
}

var defaultManager = NewManager(NewMemoryDriver(1000))

// Default returns the process-wide manager used by the package functions.
func Default() *Manager { return defaultManager }

// SetDriver swaps the driver of the default manager (e.g. to Redis).
func SetDriver(d Driver) { defaultManager.SetDriver(d) }

// Register adds a job type to the default manager.
func Register(factory func() Job) { defaultManager.Register(factory) }

// Dispatch pushes job onto the default manager.
func Dispatch(ctx context.Context, job Job) error { return defaultManager.Dispatch(ctx, job) }

// StartWorkers runs n workers of the default manager until ctx is done.
func StartWorkers(ctx context.Context, n int) { defaultManager.StartWorkers(ctx, n) }

func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	m.driver = d
	m.mu.Unlock()
}

// SetRetry configures attempts per job and the wait before each retry.
func (m *Manager) SetRetry(max int, backoff func(attempt int) time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max < 1 {
		max = 1
	}
	m.maxRetry = max
	if backoff != nil {
		m.backoff = backoff
	}
}

// UseFailureStore persists exhausted jobs in addition to the in-memory log.
func (m *Manager) UseFailureStore(s FailureStore) {
	m.mu.Lock()
	m.failures = s
	m.mu.Unlock()
}

// Register makes the type produced by factory decodable by name.
func (m *Manager) Register(factory func() Job) {
	m.mu.Lock()
	m.registry[typeName(factory())] = factory
	m.mu.Unlock()
}

func typeName(job Job) string { return fmt.Sprintf("%T", job) }

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatch encodes job and pushes it onto the driver.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	name := typeName(job)

	m.mu.RLock()
	_, known := m.registry[name]
	d := m.driver
	m.mu.RUnlock()
	if !known {
		return fmt.Errorf("%w: %s", ErrUnregistered, name)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", name, err)
	}
	env, err := json.Marshal(envelope{Type: name, Payload: payload})
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return d.Push(ctx, env)
}

// StartWorkers launches n workers that process jobs until ctx is done.
func (m *Manager) StartWorkers(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		go m.work(ctx)
	}
	logger.Info("queue: workers started", "count", n)
}

func (m *Manager) work(ctx context.Context) {
	for ctx.Err() == nil {
		m.mu.RLock()
		d := m.driver
		m.mu.RUnlock()

		raw, err := d.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if raw != nil {
			m.Process(ctx, raw)
		}
	}
}

// Process decodes and runs one raw envelope. Exported for `queue:work --once`
// style draining and tests.
func (m *Manager) Process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		return
	}

	m.runWithRetry(ctx, job, env.Type)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, name string) {
	m.mu.RLock()
	maxRetry, backoff := m.maxRetry, m.backoff
	m.mu.RUnlock()

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= maxRetry; attempt++ {
		if lastErr = job.Handle(ctx); lastErr == nil {
			metrics.RecordQueueJob(name, "success", start)
			logger.Debug("queue: job processed", "type", name, "attempt", attempt)
			return
		}
		logger.Warn("queue: job failed", "type", name, "attempt", attempt, "error", lastErr)
		if attempt < maxRetry {
			select {
			case <-ctx.Done():
				attempt = maxRetry
			case <-time.After(backoff(attempt)):
			}
		}
	}

	metrics.RecordQueueJob(name, "failed", start)
	m.recordFailure(ctx, FailedJob{Type: name, Job: job, Err: lastErr, FailedAt: time.Now().UTC(), Attempts: maxRetry})
	logger.Error("queue: job exhausted retries", "type", name, "error", lastErr)
}

// FailedJobs returns a snapshot of the in-memory failed-job log.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]FailedJob(nil), m.failed...)
}

// FailedJobs returns the default manager's failed-job log.
func FailedJobs() []FailedJob { return defaultManager.FailedJobs() }
