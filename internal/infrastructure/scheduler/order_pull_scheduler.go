package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Pull Job Types
// ---------------------------------------------------------------------------

// PullJobStatus represents the status of an order pull job
type PullJobStatus string

const (
	PullJobStatusRunning PullJobStatus = "RUNNING"
	PullJobStatusSuccess PullJobStatus = "SUCCESS"
	PullJobStatusPartial PullJobStatus = "PARTIAL"
	PullJobStatusFailed  PullJobStatus = "FAILED"
)

// PullJob is one date-range pull over [StartTime, EndTime]
type PullJob struct {
	ID          uuid.UUID
	StartTime   time.Time
	EndTime     time.Time
	Status      PullJobStatus
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	Total         int
	Succeeded     int
	AlreadySynced int
	Failed        int
	Skipped       int
}

func newPullJob(start, end, now time.Time) *PullJob {
	return &PullJob{
		ID:        uuid.New(),
		StartTime: start,
		EndTime:   end,
		Status:    PullJobStatusRunning,
		StartedAt: now,
	}
}

func (j *PullJob) complete(bulk *domain.BulkSyncResult, now time.Time) {
	j.CompletedAt = &now
	j.Total = bulk.Total
	j.Succeeded = bulk.Succeeded
	j.AlreadySynced = bulk.AlreadySynced
	j.Failed = bulk.Failed
	j.Skipped = bulk.Skipped

	switch {
	case bulk.Failed == 0:
		j.Status = PullJobStatusSuccess
	case bulk.Succeeded+bulk.AlreadySynced > 0:
		j.Status = PullJobStatusPartial
	default:
		j.Status = PullJobStatusFailed
	}
}

func (j *PullJob) fail(err error, now time.Time) {
	j.CompletedAt = &now
	j.Status = PullJobStatusFailed
	j.Error = err.Error()
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// DateRangeSyncer runs one bulk sync over the orders placed in a window
type DateRangeSyncer interface {
	SyncDateRange(ctx context.Context, start, end time.Time, status *domain.OrderStatus) (*domain.BulkSyncResult, error)
}

// OrderPullSchedulerConfig holds configuration for the order pull scheduler
type OrderPullSchedulerConfig struct {
	// Interval is the time between pulls
	Interval time.Duration
	// Lookback is the window length; each pull covers [now-Lookback, now] so
	// failed orders are retried until they age out of the window
	Lookback time.Duration
	// InitialDelay postpones the first pull after Start
	InitialDelay time.Duration
	// JobTimeout bounds a single pull
	JobTimeout time.Duration
	// OrderStatus restricts pulls to one cart status; nil pulls every status
	OrderStatus *domain.OrderStatus
	// MaxHistory is the number of finished jobs kept for inspection
	MaxHistory int
}

// DefaultOrderPullSchedulerConfig returns default configuration
func DefaultOrderPullSchedulerConfig() OrderPullSchedulerConfig {
	return OrderPullSchedulerConfig{
		Interval:     15 * time.Minute,
		Lookback:     24 * time.Hour,
		InitialDelay: 30 * time.Second,
		JobTimeout:   30 * time.Minute,
		MaxHistory:   50,
	}
}

// Validate validates the configuration
func (c *OrderPullSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.Lookback <= 0 {
		return fmt.Errorf("%w: lookback must be positive", ErrInvalidConfig)
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("%w: initial delay cannot be negative", ErrInvalidConfig)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxHistory < 0 {
		return fmt.Errorf("%w: max history cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// ---------------------------------------------------------------------------
// OrderPullScheduler
// ---------------------------------------------------------------------------

// OrderPullScheduler periodically pulls recent cart orders and syncs them.
// Only one pull runs at a time.
type OrderPullScheduler struct {
	config OrderPullSchedulerConfig
	syncer DateRangeSyncer
	logger *zap.Logger
	now    func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	pullMu sync.Mutex

	historyMu sync.RWMutex
	history   []*PullJob
}

// NewOrderPullScheduler creates a new order pull scheduler
func NewOrderPullScheduler(config OrderPullSchedulerConfig, syncer DateRangeSyncer, log *zap.Logger) (*OrderPullScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if syncer == nil {
		return nil, fmt.Errorf("%w: syncer is required", ErrInvalidConfig)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &OrderPullScheduler{
		config: config,
		syncer: syncer,
		logger: log.Named("order_pull_scheduler"),
		now:    time.Now,
	}, nil
}

// Start starts the pull loop
func (s *OrderPullScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Order pull scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("lookback", s.config.Lookback),
		zap.Duration("initial_delay", s.config.InitialDelay),
	)
	return nil
}

// Stop stops the loop and waits for an in-flight pull up to ctx's deadline
func (s *OrderPullScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Order pull scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Order pull scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *OrderPullScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.InitialDelay > 0 {
		timer := time.NewTimer(s.config.InitialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.pullScheduled(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pullScheduled(ctx)
		}
	}
}

// pullScheduled runs one pull over the lookback window ending now
func (s *OrderPullScheduler) pullScheduled(ctx context.Context) {
	if !s.pullMu.TryLock() {
		s.logger.Warn("Skipping scheduled pull, previous pull still running")
		return
	}
	defer s.pullMu.Unlock()

	ctx, _ = logger.WithSyncSource(ctx, s.logger, "scheduler")
	end := s.now()
	s.execute(ctx, end.Add(-s.config.Lookback), end, s.config.OrderStatus)
}

// TriggerPull runs one pull over [start, end] immediately. It fails with
// ErrPullInProgress when another pull is running.
func (s *OrderPullScheduler) TriggerPull(ctx context.Context, start, end time.Time, status *domain.OrderStatus) (*PullJob, error) {
	if !start.Before(end) {
		return nil, ErrInvalidTimeRange
	}
	if !s.pullMu.TryLock() {
		return nil, ErrPullInProgress
	}
	defer s.pullMu.Unlock()

	job := s.execute(ctx, start, end, status)
	if job.Error != "" {
		return job, fmt.Errorf("order pull failed: %s", job.Error)
	}
	return job, nil
}

func (s *OrderPullScheduler) execute(ctx context.Context, start, end time.Time, status *domain.OrderStatus) *PullJob {
	job := newPullJob(start, end, s.now())
	ctx, _ = logger.WithJobID(ctx, s.logger, job.ID.String())
	log := logger.Scoped(ctx, s.logger).With(
		zap.Time("start_time", start),
		zap.Time("end_time", end),
	)
	log.Info("Pulling cart orders")

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	bulk, err := s.syncer.SyncDateRange(jobCtx, start, end, status)
	if err != nil {
		job.fail(err, s.now())
		log.Error("Order pull failed", zap.Error(err))
	} else {
		job.complete(bulk, s.now())
		log.Info("Order pull completed",
			zap.String("status", string(job.Status)),
			zap.Int("total", job.Total),
			zap.Int("succeeded", job.Succeeded),
			zap.Int("already_synced", job.AlreadySynced),
			zap.Int("failed", job.Failed),
			zap.Int("skipped", job.Skipped),
		)
	}

	s.addToHistory(job)
	return job
}

func (s *OrderPullScheduler) addToHistory(job *PullJob) {
	if s.config.MaxHistory == 0 {
		return
	}
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*PullJob{job}, s.history...)
	if len(s.history) > s.config.MaxHistory {
		s.history = s.history[:s.config.MaxHistory]
	}
}

// History returns up to limit finished jobs, newest first. limit <= 0 returns all.
func (s *OrderPullScheduler) History(limit int) []*PullJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	result := make([]*PullJob, limit)
	copy(result, s.history[:limit])
	return result
}
