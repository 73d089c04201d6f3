package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fire-news/internal/logging"
	"fire-news/internal/services"

	"github.com/robfig/cron/v3"
)

// Rescorer scores a batch of articles that have no automated score yet
type Rescorer interface {
	RescorePending(ctx context.Context, batch int) (services.RescoreSummary, error)
}

// WorkerService runs the scheduled rescore of unscored articles
type WorkerService struct {
	rescorer Rescorer
	schedule string
	batch    int

	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mu      sync.RWMutex

	startedAt time.Time
	lastRun   time.Time
	last      services.RescoreSummary
	lastErr   error
	runs      int
}

// NewWorkerService validates the cron schedule up front. Standard five-field
// expressions and descriptors such as "@every 10m" are accepted.
func NewWorkerService(rescorer Rescorer, schedule string, batch int) (*WorkerService, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid rescore schedule %q: %w", schedule, err)
	}
	return &WorkerService{
		rescorer: rescorer,
		schedule: schedule,
		batch:    batch,
	}, nil
}

// Start starts the scheduler
func (ws *WorkerService) Start() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.running {
		return nil
	}

	ws.ctx, ws.cancel = context.WithCancel(context.Background())
	ws.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := ws.cron.AddFunc(ws.schedule, ws.runOnce); err != nil {
		ws.cancel()
		return fmt.Errorf("failed to add rescore job: %w", err)
	}
	ws.cron.Start()

	ws.running = true
	ws.startedAt = time.Now()
	logging.Logger.Info().Str("schedule", ws.schedule).Int("batch", ws.batch).Msg("rescore worker started")
	return nil
}

// Stop cancels an in-flight batch and waits for it to return
func (ws *WorkerService) Stop() {
	ws.mu.Lock()
	if !ws.running {
		ws.mu.Unlock()
		return
	}
	ws.running = false
	c, cancel := ws.cron, ws.cancel
	ws.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	logging.Logger.Info().Msg("rescore worker stopped")
}

// IsRunning returns whether the scheduler is currently running
func (ws *WorkerService) IsRunning() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.running
}

func (ws *WorkerService) runOnce() {
	ws.mu.RLock()
	ctx := ws.ctx
	ws.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}

	summary, err := ws.rescorer.RescorePending(ctx, ws.batch)
	if err != nil && ctx.Err() == nil {
		logging.Logger.Error().Err(err).Msg("rescore batch failed")
	}

	ws.mu.Lock()
	ws.runs++
	ws.lastRun = time.Now()
	ws.last = summary
	ws.lastErr = err
	ws.mu.Unlock()
}

// GetStatus returns the scheduler state for diagnostics
func (ws *WorkerService) GetStatus() map[string]interface{} {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	status := map[string]interface{}{
		"running":  ws.running,
		"schedule": ws.schedule,
		"batch":    ws.batch,
		"runs":     ws.runs,
	}
	if ws.running {
		status["uptime"] = time.Since(ws.startedAt).Round(time.Second).String()
	}
	if !ws.lastRun.IsZero() {
		status["last_run"] = ws.lastRun
		status["last_summary"] = ws.last
	}
	if ws.lastErr != nil {
		status["last_error"] = ws.lastErr.Error()
	}
	return status
}
