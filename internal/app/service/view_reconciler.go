package service

import (
	"context"
	"time"

	apprepository "github.com/hackerloum/secureview/internal/app/repository"
	"go.uber.org/zap"
)

// ViewReconciler periodically recomputes cumulative view counters from the
// append-only audit table, repairing any drift left by best-effort bumps.
type ViewReconciler struct {
	logger   *zap.Logger
	views    apprepository.ViewEventRepository
	contents apprepository.ContentRepository
	interval time.Duration
	stopChan chan struct{}
}

// NewViewReconciler creates a new view counter reconciler.
func NewViewReconciler(logger *zap.Logger, views apprepository.ViewEventRepository, contents apprepository.ContentRepository) *ViewReconciler {
	return &ViewReconciler{
		logger:   logger,
		views:    views,
		contents: contents,
		interval: 5 * time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic reconciliation.
func (r *ViewReconciler) Start() {
	go r.run()
}

// Stop stops the periodic reconciliation.
func (r *ViewReconciler) Stop() {
	close(r.stopChan)
}

func (r *ViewReconciler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.reconcile()
		case <-r.stopChan:
			r.logger.Info("view reconciler stopped")
			return
		}
	}
}

func (r *ViewReconciler) reconcile() {
	ctx := context.Background()

	counts, err := r.views.CountsByContent(ctx)
	if err != nil {
		r.logger.Error("failed to aggregate view events", zap.Error(err))
		return
	}

	repaired := 0
	for _, c := range counts {
		if err := r.contents.SetViewCount(ctx, c.ContentID, c.Total); err != nil {
			r.logger.Warn("failed to set view counter",
				zap.String("content_id", c.ContentID),
				zap.Error(err))
			continue
		}
		repaired++
	}

	if repaired > 0 {
		r.logger.Debug("view counters reconciled", zap.Int("contents", repaired))
	}
}
