package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/luisarteaga/marketdesk-backend/internal/settlement"
	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"
	"github.com/luisarteaga/marketdesk-backend/pkg/outbox"
	"github.com/luisarteaga/marketdesk-backend/pkg/outbox/payloads"
)

const defaultOrphanGraceWindow = 30 * time.Minute

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OrphanBatchJobParams configure the orphan batch sweeper.
type OrphanBatchJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  settlement.Repository
	Outbox      outboxEmitter
	GraceWindow time.Duration
}

// NewOrphanBatchJob builds the job that removes requested batches which never
// attached any item. The transactional create path cannot leave such rows
// behind on its own; this sweeper is the backstop for crashes between commit
// phases after a restore or a manual intervention.
func NewOrphanBatchJob(params OrphanBatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	grace := params.GraceWindow
	if grace <= 0 {
		grace = defaultOrphanGraceWindow
	}
	return &orphanBatchJob{
		logg:   params.Logger,
		db:     params.DB,
		repo:   params.Repository,
		outbox: params.Outbox,
		grace:  grace,
		now:    time.Now,
	}, nil
}

type orphanBatchJob struct {
	logg   *logger.Logger
	db     txRunner
	repo   settlement.Repository
	outbox outboxEmitter
	grace  time.Duration
	now    func() time.Time
}

func (j *orphanBatchJob) Name() string { return "orphan-batch-sweeper" }

func (j *orphanBatchJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	orphans, err := j.repo.ListOrphanRequested(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list orphan batches: %w", err)
	}
	if len(orphans) == 0 {
		j.logg.Info(ctx, "no orphan batches found")
		return nil
	}

	swept := 0
	for _, batch := range orphans {
		if err := j.sweep(ctx, batch); err != nil {
			batchCtx := j.logg.WithField(ctx, "batch_id", batch.ID.String())
			j.logg.Error(batchCtx, "failed to sweep orphan batch", err)
			continue
		}
		swept++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"found":   len(orphans),
		"swept":   swept,
		"skipped": len(orphans) - swept,
	})
	j.logg.Info(logCtx, "orphan batch sweep complete")
	return nil
}

func (j *orphanBatchJob) sweep(ctx context.Context, batch models.SettlementBatch) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := j.repo.WithTx(tx).DeleteBatch(ctx, batch.ID); err != nil {
			return err
		}
		return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrphanBatchSwept,
			AggregateType: enums.AggregateSettlementBatch,
			AggregateID:   batch.ID,
			Version:       1,
			Data: payloads.OrphanBatchSweptEvent{
				BatchID:    batch.ID,
				VendorName: batch.VendorName,
				CreatedAt:  batch.CreatedAt,
				SweptAt:    j.now().UTC(),
			},
		})
	})
}
