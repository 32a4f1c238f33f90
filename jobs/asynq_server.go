package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/partsdesk/partsdesk/internal/platform/httpx"
)

// DefaultConcurrency is the number of tasks a worker runs at once when
// WorkerConfig leaves it unset.
const DefaultConcurrency = 5

// Worker runs registered task handlers and, when cron entries are given, the
// scheduler that enqueues them.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler binds a task type to its handler.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Handlers  []TaskHandler
	Cron      []CronRegistration

	// Concurrency caps in-flight tasks. Zero means DefaultConcurrency.
	Concurrency int
	// Queues maps queue names to priority weights. QueueDefault is always
	// served, with weight 1 unless set here.
	Queues          map[string]int
	ShutdownTimeout time.Duration
}

func (cfg WorkerConfig) serverConfig() asynq.Config {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	queues := make(map[string]int, len(cfg.Queues)+1)
	for name, weight := range cfg.Queues {
		if name == "" || weight <= 0 {
			continue
		}
		queues[name] = weight
	}
	if _, ok := queues[QueueDefault]; !ok {
		queues[QueueDefault] = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return asynq.Config{
		Concurrency:     concurrency,
		Queues:          queues,
		ShutdownTimeout: cfg.ShutdownTimeout,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn("task failed",
				slog.String("type", task.Type()),
				slog.Int("retried", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err))
		}),
	}
}

// NewWorker builds a Worker. Handlers or cron entries missing a type, spec
// or task are skipped; a cron spec the scheduler rejects fails the build.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type != "" && h.Handler != nil {
			mux.HandleFunc(h.Type, h.Handler)
		}
	}
	scheduler, err := newScheduler(cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		server:    asynq.NewServer(cfg.RedisOpts, cfg.serverConfig()),
		mux:       mux,
		scheduler: scheduler,
		logger:    logger,
	}, nil
}

func newScheduler(cfg WorkerConfig) (*asynq.Scheduler, error) {
	if len(cfg.Cron) == 0 {
		return nil, nil
	}
	scheduler := asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
	for _, entry := range cfg.Cron {
		if entry.Spec == "" || entry.Task == nil {
			continue
		}
		if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
			return nil, fmt.Errorf("jobs: register %s at %q: %w", entry.Task.Type(), entry.Spec, err)
		}
	}
	return scheduler, nil
}

// Run processes tasks until ctx is cancelled or the server stops on its own.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return fmt.Errorf("jobs: start scheduler: %w", err)
		}
		defer w.scheduler.Shutdown()
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	w.logger.Info("worker started")
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueDashboardWarmup asks a worker to rebuild the cached dashboard.
// Requests within a minute of each other collapse into one task.
func (c *Client) EnqueueDashboardWarmup(ctx context.Context, reason string) (*asynq.TaskInfo, error) {
	task, err := NewDashboardWarmupTask(reason)
	if err != nil {
		return nil, err
	}
	info, err := c.client.EnqueueContext(ctx, task, uniqueID(TaskDashboardWarmup), asynq.Unique(time.Minute), asynq.MaxRetry(2))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil, nil
	}
	return info, err
}

// EnqueueLookupSweep asks a worker to drop cached lookup maps.
func (c *Client) EnqueueLookupSweep(ctx context.Context, tables ...string) (*asynq.TaskInfo, error) {
	task, err := NewLookupSweepTask(tables...)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, uniqueID(TaskLookupSweep))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector *asynq.Inspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints. A nil inspector
// reports an empty default queue.
func NewHandler(inspector *asynq.Inspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

type queueHealth struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	body := queueHealth{Queue: QueueDefault}
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, body)
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.JSON(w, http.StatusServiceUnavailable, httpx.ErrorBody{Message: "Failed to read job queue", Error: err.Error()})
		return
	}
	if info != nil {
		body.Queue = info.Queue
		body.Pending = info.Pending
	}
	httpx.JSON(w, http.StatusOK, body)
}
