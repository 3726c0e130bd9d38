package cron

import (
	"context"
	"fmt"

	"github.com/luisarteaga/marketdesk-backend/internal/settlement"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"
)

// DoublePaymentJobParams configure the double-payment audit.
type DoublePaymentJobParams struct {
	Logger     *logger.Logger
	Repository settlement.Repository
}

// NewDoublePaymentJob builds the job that audits the no-double-payment
// invariant. The unique (batch_id, line_item_id) index prevents duplicates
// inside one batch, so any line item present in more than one batch means the
// set-difference query regressed or someone wrote rows by hand. The job only
// reports; repairing payout history is a human decision.
func NewDoublePaymentJob(params DoublePaymentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	return &doublePaymentJob{
		logg: params.Logger,
		repo: params.Repository,
	}, nil
}

type doublePaymentJob struct {
	logg *logger.Logger
	repo settlement.Repository
}

func (j *doublePaymentJob) Name() string { return "double-payment-audit" }

func (j *doublePaymentJob) Run(ctx context.Context) error {
	ids, err := j.repo.ListDoublePaidLineItems(ctx)
	if err != nil {
		return fmt.Errorf("double payment audit: %w", err)
	}
	if len(ids) == 0 {
		j.logg.Info(ctx, "double payment audit clean")
		return nil
	}

	violations := make([]string, 0, len(ids))
	for _, id := range ids {
		violations = append(violations, id.String())
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"count":         len(ids),
		"line_item_ids": violations,
	})
	j.logg.Error(logCtx, "line items paid in multiple batches", fmt.Errorf("%d invariant violations", len(ids)))
	return fmt.Errorf("double payment audit: %d line items paid more than once", len(ids))
}
