package assets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// refreshTimeout bounds one scheduled refresh
const refreshTimeout = 5 * time.Minute

// Scheduler re-downloads the assets on a cron schedule
type Scheduler struct {
	cron       *cron.Cron
	downloader *Downloader
	logger     *slog.Logger
}

// NewScheduler registers a refresh job for spec (standard 5-field cron or a
// descriptor such as @daily)
func NewScheduler(spec string, downloader *Downloader, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:       cron.New(),
		downloader: downloader,
		logger:     logger.With("component", "asset_scheduler"),
	}

	if _, err := s.cron.AddFunc(spec, s.refresh); err != nil {
		return nil, fmt.Errorf("invalid asset refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Asset refresh scheduled", "entries", len(s.cron.Entries()))
}

// Stop stops the schedule and waits for a running refresh
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := s.downloader.DownloadAll(ctx); err != nil {
		s.logger.Error("Scheduled asset refresh failed", "error", err)
		return
	}
	s.logger.Info("Assets refreshed")
}
