package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/luisarteaga/marketdesk-backend/internal/settlement"
	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"
	"github.com/luisarteaga/marketdesk-backend/pkg/outbox"
	"github.com/luisarteaga/marketdesk-backend/pkg/pagination"
)

type fakeSettlementRepo struct {
	orphans    []models.SettlementBatch
	lastCutoff time.Time
	deleted    []uuid.UUID
	deleteErr  error
	doublePaid []uuid.UUID
	listErr    error
}

func (f *fakeSettlementRepo) WithTx(tx *gorm.DB) settlement.Repository { return f }

func (f *fakeSettlementRepo) CreateBatch(ctx context.Context, batch *models.SettlementBatch) error {
	return nil
}

func (f *fakeSettlementRepo) ClaimedLineItems(ctx context.Context, lineItemIDs []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	return map[uuid.UUID]struct{}{}, nil
}

func (f *fakeSettlementRepo) InsertItem(ctx context.Context, item *models.BatchItem) (bool, error) {
	return false, nil
}

func (f *fakeSettlementRepo) UpdateTotal(ctx context.Context, batchID uuid.UUID, total decimal.Decimal) error {
	return nil
}

func (f *fakeSettlementRepo) FindByID(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSettlementRepo) List(ctx context.Context, vendorName string, limit int, cursor *pagination.Cursor) ([]models.SettlementBatch, error) {
	return nil, nil
}

func (f *fakeSettlementRepo) DeleteBatch(ctx context.Context, batchID uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, batchID)
	return nil
}

func (f *fakeSettlementRepo) ListOrphanRequested(ctx context.Context, olderThan time.Time) ([]models.SettlementBatch, error) {
	f.lastCutoff = olderThan
	return f.orphans, f.listErr
}

func (f *fakeSettlementRepo) ListDoublePaidLineItems(ctx context.Context) ([]uuid.UUID, error) {
	return f.doublePaid, f.listErr
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type cronTxRunner struct{}

func (cronTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newOrphanJob(t *testing.T, repo *fakeSettlementRepo, emitter *fakeEmitter) *orphanBatchJob {
	t.Helper()
	jobIface, err := NewOrphanBatchJob(OrphanBatchJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         cronTxRunner{},
		Repository: repo,
		Outbox:     emitter,
	})
	if err != nil {
		t.Fatalf("NewOrphanBatchJob: %v", err)
	}
	job, ok := jobIface.(*orphanBatchJob)
	if !ok {
		t.Fatalf("expected orphanBatchJob, got %T", jobIface)
	}
	return job
}

func TestOrphanBatchJobSweepsOldRequestedBatches(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	orphan := models.SettlementBatch{
		ID:         uuid.New(),
		VendorName: "acme supply",
		Status:     enums.BatchStatusRequested,
		CreatedAt:  now.Add(-2 * time.Hour),
	}
	repo := &fakeSettlementRepo{orphans: []models.SettlementBatch{orphan}}
	emitter := &fakeEmitter{}
	job := newOrphanJob(t, repo, emitter)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.Add(-defaultOrphanGraceWindow)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("cutoff = %s, want %s", repo.lastCutoff, expectedCutoff)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != orphan.ID {
		t.Fatalf("orphan not deleted: %+v", repo.deleted)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventOrphanBatchSwept {
		t.Fatalf("expected sweep audit event, got %+v", emitter.events)
	}
}

func TestOrphanBatchJobNoOrphans(t *testing.T) {
	repo := &fakeSettlementRepo{}
	emitter := &fakeEmitter{}
	job := newOrphanJob(t, repo, emitter)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.deleted) != 0 || len(emitter.events) != 0 {
		t.Fatal("nothing should be swept")
	}
}

func TestOrphanBatchJobContinuesPastFailures(t *testing.T) {
	repo := &fakeSettlementRepo{
		orphans:   []models.SettlementBatch{{ID: uuid.New()}, {ID: uuid.New()}},
		deleteErr: errors.New("deadlock"),
	}
	job := newOrphanJob(t, repo, &fakeEmitter{})

	// per-batch failures are logged, not fatal for the run
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestDoublePaymentJobReportsViolations(t *testing.T) {
	repo := &fakeSettlementRepo{doublePaid: []uuid.UUID{uuid.New()}}
	jobIface, err := NewDoublePaymentJob(DoublePaymentJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewDoublePaymentJob: %v", err)
	}

	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("violations must surface as a job failure")
	}
}

func TestDoublePaymentJobCleanRun(t *testing.T) {
	jobIface, err := NewDoublePaymentJob(DoublePaymentJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: &fakeSettlementRepo{},
	})
	if err != nil {
		t.Fatalf("NewDoublePaymentJob: %v", err)
	}

	if err := jobIface.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
